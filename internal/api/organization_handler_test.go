package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/annotator-api/internal/domain"
	"github.com/phrazzld/annotator-api/internal/service"
	"github.com/phrazzld/annotator-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testOrganization(ownerID uuid.UUID) *domain.Organization {
	now := time.Now().UTC()
	return &domain.Organization{
		ID:        uuid.New(),
		Slug:      "acme",
		Name:      "Acme",
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestOrganizationHandler_Create(t *testing.T) {
	ic := testIAMContext()

	t.Run("created", func(t *testing.T) {
		svc := &MockOrganizationService{}
		org := testOrganization(ic.UserID())
		svc.On("CreateOrganization", mock.Anything, ic, service.CreateOrganizationInput{Slug: "acme", Name: "Acme"}).
			Return(org, nil)

		rec := httptest.NewRecorder()
		req := newRequest(http.MethodPost, "/api/organizations", strings.NewReader(`{"slug":"acme","name":"Acme"}`), ic, nil)
		NewOrganizationHandler(svc, nil).CreateOrganization(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)
		var resp OrganizationResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, org.ID, resp.ID)
		assert.Equal(t, ic.UserID(), resp.OwnerID)
		assert.NotNil(t, resp.Contact)
	})

	t.Run("owner cannot be supplied", func(t *testing.T) {
		svc := &MockOrganizationService{}
		rec := httptest.NewRecorder()
		body := `{"slug":"acme","owner":"` + uuid.NewString() + `"}`
		NewOrganizationHandler(svc, nil).CreateOrganization(rec, newRequest(http.MethodPost, "/", strings.NewReader(body), ic, nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		svc.AssertNotCalled(t, "CreateOrganization", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("slug required", func(t *testing.T) {
		svc := &MockOrganizationService{}
		rec := httptest.NewRecorder()
		NewOrganizationHandler(svc, nil).CreateOrganization(rec, newRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x"}`), ic, nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Invalid slug")
	})

	t.Run("duplicate slug", func(t *testing.T) {
		svc := &MockOrganizationService{}
		svc.On("CreateOrganization", mock.Anything, ic, mock.Anything).Return(nil, store.ErrSlugExists)

		rec := httptest.NewRecorder()
		NewOrganizationHandler(svc, nil).CreateOrganization(rec, newRequest(http.MethodPost, "/", strings.NewReader(`{"slug":"acme"}`), ic, nil))

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Contains(t, rec.Body.String(), "Organization slug already exists")
	})

	t.Run("unauthenticated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewOrganizationHandler(&MockOrganizationService{}, nil).
			CreateOrganization(rec, newRequest(http.MethodPost, "/", strings.NewReader(`{"slug":"acme"}`), nil, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestOrganizationHandler_List(t *testing.T) {
	ic := testIAMContext()
	svc := &MockOrganizationService{}
	svc.On("ListOrganizations", mock.Anything, ic).Return([]*domain.Organization{testOrganization(ic.UserID())}, nil)

	rec := httptest.NewRecorder()
	NewOrganizationHandler(svc, nil).ListOrganizations(rec, newRequest(http.MethodGet, "/api/organizations", nil, ic, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp []OrganizationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp, 1, "organization lists are not paginated")
}

func TestOrganizationHandler_Get(t *testing.T) {
	ic := testIAMContext()

	tests := []struct {
		name       string
		id         string
		err        error
		wantStatus int
	}{
		{"found", uuid.NewString(), nil, http.StatusOK},
		{"hidden or missing", uuid.NewString(), store.ErrOrganizationNotFound, http.StatusNotFound},
		{"malformed id", "not-a-uuid", nil, http.StatusBadRequest},
		{"store failure", uuid.NewString(), errors.New("connection refused"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockOrganizationService{}
			if id, err := uuid.Parse(tt.id); err == nil {
				org := testOrganization(ic.UserID())
				org.ID = id
				if tt.err != nil {
					org = nil
				}
				svc.On("GetOrganization", mock.Anything, ic, id).Return(org, tt.err)
			}

			rec := httptest.NewRecorder()
			req := newRequest(http.MethodGet, "/api/organizations/"+tt.id, nil, ic, map[string]string{"id": tt.id})
			NewOrganizationHandler(svc, nil).GetOrganization(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.NotContains(t, rec.Body.String(), "connection refused")
		})
	}
}

func TestOrganizationHandler_Update(t *testing.T) {
	ic := testIAMContext()
	org := testOrganization(ic.UserID())
	org.Name = "Acme Labs"

	svc := &MockOrganizationService{}
	svc.On("UpdateOrganization", mock.Anything, ic, org.ID, mock.MatchedBy(func(p domain.OrganizationPatch) bool {
		return p.Name != nil && *p.Name == "Acme Labs" && p.Slug == nil
	})).Return(org, nil)

	rec := httptest.NewRecorder()
	req := newRequest(http.MethodPatch, "/", strings.NewReader(`{"name":"Acme Labs"}`), ic, map[string]string{"id": org.ID.String()})
	NewOrganizationHandler(svc, nil).UpdateOrganization(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Acme Labs")
	svc.AssertExpectations(t)
}

func TestOrganizationHandler_Delete(t *testing.T) {
	ic := testIAMContext()
	id := uuid.New()

	svc := &MockOrganizationService{}
	svc.On("DeleteOrganization", mock.Anything, ic, id).Return(domain.ErrForbidden).Once()
	svc.On("DeleteOrganization", mock.Anything, ic, id).Return(nil).Once()
	h := NewOrganizationHandler(svc, nil)

	rec := httptest.NewRecorder()
	h.DeleteOrganization(rec, newRequest(http.MethodDelete, "/", nil, ic, map[string]string{"id": id.String()}))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	h.DeleteOrganization(rec, newRequest(http.MethodDelete, "/", nil, ic, map[string]string{"id": id.String()}))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
