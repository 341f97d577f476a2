package policy

import (
	"testing"

	"github.com/certolo/certolo-backend/internal/app/model"
	"github.com/certolo/certolo-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func applicant(id uint) Principal {
	return Principal{UserID: id, Role: model.RoleApplicant, Authenticated: true}
}

func certifier(id uint) Principal {
	return Principal{UserID: id, Role: model.RoleCertifier, Authenticated: true}
}

func TestAuthorize_DecisionTable(t *testing.T) {
	tests := []struct {
		name      string
		principal Principal
		action    Action
		resource  Resource
		allowed   bool
		scoped    bool
	}{
		{
			name:      "anonymous can browse standards scoped to active",
			principal: Anonymous(),
			action:    ActionList,
			resource:  ResourceStandard,
			allowed:   true,
			scoped:    true,
		},
		{
			name:      "anonymous cannot create standards",
			principal: Anonymous(),
			action:    ActionCreate,
			resource:  ResourceStandard,
			allowed:   false,
		},
		{
			name:      "anonymous cannot list applications",
			principal: Anonymous(),
			action:    ActionList,
			resource:  ResourceApplication,
			allowed:   false,
		},
		{
			name:      "applicant creates applications unscoped",
			principal: applicant(1),
			action:    ActionCreate,
			resource:  ResourceApplication,
			allowed:   true,
			scoped:    false,
		},
		{
			name:      "applicant lists own applications",
			principal: applicant(1),
			action:    ActionList,
			resource:  ResourceApplication,
			allowed:   true,
			scoped:    true,
		},
		{
			name:      "applicant cannot decide applications",
			principal: applicant(1),
			action:    ActionDecide,
			resource:  ResourceApplication,
			allowed:   false,
		},
		{
			name:      "applicant cannot create standards",
			principal: applicant(1),
			action:    ActionCreate,
			resource:  ResourceStandard,
			allowed:   false,
		},
		{
			name:      "certifier creates standards",
			principal: certifier(2),
			action:    ActionCreate,
			resource:  ResourceStandard,
			allowed:   true,
			scoped:    false,
		},
		{
			name:      "certifier updates standards scoped to own",
			principal: certifier(2),
			action:    ActionUpdate,
			resource:  ResourceStandard,
			allowed:   true,
			scoped:    true,
		},
		{
			name:      "certifier cannot submit applications",
			principal: certifier(2),
			action:    ActionSubmit,
			resource:  ResourceApplication,
			allowed:   false,
		},
		{
			name:      "certifier reviews applications scoped to own",
			principal: certifier(2),
			action:    ActionReview,
			resource:  ResourceApplication,
			allowed:   true,
			scoped:    true,
		},
		{
			name:      "certifier cannot create applications",
			principal: certifier(2),
			action:    ActionCreate,
			resource:  ResourceApplication,
			allowed:   false,
		},
		{
			name:      "certificate verification is public",
			principal: Anonymous(),
			action:    ActionVerify,
			resource:  ResourceCertificate,
			allowed:   true,
			scoped:    false,
		},
		{
			name:      "applicant cannot export customers",
			principal: applicant(1),
			action:    ActionExport,
			resource:  ResourceCustomer,
			allowed:   false,
		},
		{
			name:      "certifier exports customers scoped",
			principal: certifier(2),
			action:    ActionExport,
			resource:  ResourceCustomer,
			allowed:   true,
			scoped:    true,
		},
		{
			name:      "unknown resource is denied",
			principal: certifier(2),
			action:    ActionRead,
			resource:  Resource("nonsense"),
			allowed:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := Authorize(tt.principal, tt.action, tt.resource)
			assert.Equal(t, tt.allowed, decision.Allowed())
			if tt.allowed && tt.scoped {
				assert.Equal(t, EffectAllowScoped, decision.Effect)
				assert.NotNil(t, decision.Scope)
			}
			if tt.allowed && !tt.scoped {
				assert.Equal(t, EffectAllow, decision.Effect)
			}
			if !tt.allowed {
				assert.Nil(t, decision.Scope)
			}
		})
	}
}

func TestAuthorize_ScopeFiltersRows(t *testing.T) {
	database, err := db.SetupTestDB()
	require.NoError(t, err)
	defer db.CleanupTestDB(database)

	certifierA := model.User{CompanyName: "Cert A", Email: "a@cert.example", PasswordHash: "x", Role: model.RoleCertifier}
	certifierB := model.User{CompanyName: "Cert B", Email: "b@cert.example", PasswordHash: "x", Role: model.RoleCertifier}
	require.NoError(t, database.Create(&certifierA).Error)
	require.NoError(t, database.Create(&certifierB).Error)

	standards := []model.Standard{
		{CertifierID: certifierA.ID, Name: "Organic Textile", Code: "OT-100", Status: model.StandardActive},
		{CertifierID: certifierA.ID, Name: "Fair Labor", Code: "FL-200", Status: model.StandardInactive},
		{CertifierID: certifierB.ID, Name: "Carbon Neutral", Code: "CN-300", Status: model.StandardActive},
	}
	for i := range standards {
		require.NoError(t, database.Create(&standards[i]).Error)
	}

	t.Run("anonymous only sees active standards", func(t *testing.T) {
		decision := Authorize(Anonymous(), ActionList, ResourceStandard)
		require.Equal(t, EffectAllowScoped, decision.Effect)

		var got []model.Standard
		require.NoError(t, database.Scopes(decision.Scope).Find(&got).Error)
		assert.Len(t, got, 2)
		for _, s := range got {
			assert.Equal(t, model.StandardActive, s.Status)
		}
	})

	t.Run("certifier sees own standards regardless of status", func(t *testing.T) {
		decision := Authorize(certifier(certifierA.ID), ActionList, ResourceStandard)
		require.Equal(t, EffectAllowScoped, decision.Effect)

		var got []model.Standard
		require.NoError(t, database.Scopes(decision.Scope).Find(&got).Error)
		assert.Len(t, got, 2)
		for _, s := range got {
			assert.Equal(t, certifierA.ID, s.CertifierID)
		}
	})

	t.Run("certifier update scope excludes another certifier's standard", func(t *testing.T) {
		decision := Authorize(certifier(certifierB.ID), ActionUpdate, ResourceStandard)
		require.Equal(t, EffectAllowScoped, decision.Effect)

		var got []model.Standard
		require.NoError(t, database.Scopes(decision.Scope).Find(&got).Error)
		require.Len(t, got, 1)
		assert.Equal(t, "CN-300", got[0].Code)
	})
}

func TestPrincipal_ObjectOwnership(t *testing.T) {
	app := &model.Application{ApplicantID: 1, CertifierID: 2}
	std := &model.Standard{CertifierID: 2}

	assert.True(t, applicant(1).OwnsApplicationAsApplicant(app))
	assert.False(t, applicant(9).OwnsApplicationAsApplicant(app))
	assert.False(t, certifier(1).OwnsApplicationAsApplicant(app))

	assert.True(t, certifier(2).OwnsApplicationAsCertifier(app))
	assert.False(t, certifier(3).OwnsApplicationAsCertifier(app))

	assert.True(t, certifier(2).OwnsStandard(std))
	assert.False(t, certifier(5).OwnsStandard(std))
	assert.False(t, Anonymous().OwnsStandard(std))

	assert.False(t, applicant(1).OwnsApplicationAsApplicant(nil))
}
