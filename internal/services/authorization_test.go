package services_test

import (
	"testing"

	"taskboard/backend/internal/models"
	"taskboard/backend/internal/services"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type AuthorizationTestSuite struct {
	serviceSuite
	resolver *services.Resolver

	owner    *models.User
	grantee  *models.User
	outsider *models.User
	board    *models.Board
}

func (suite *AuthorizationTestSuite) SetupTest() {
	suite.serviceSuite.SetupTest()
	suite.resolver = services.NewResolver(suite.store)

	suite.owner = suite.createUser("owner")
	suite.grantee = suite.createUser("grantee")
	suite.outsider = suite.createUser("outsider")

	suite.board = &models.Board{Title: "Roadmap", OwnerID: suite.owner.ID}
	suite.Require().NoError(suite.store.CreateBoard(suite.ctx, suite.board))
	suite.Require().NoError(suite.store.CreateGrant(suite.ctx, &models.SharedUser{
		BoardID:      suite.board.ID,
		SharedUserID: suite.grantee.ID,
	}))
}

func (suite *AuthorizationTestSuite) TestResolve_Owner() {
	tier, err := suite.resolver.Resolve(suite.ctx, suite.owner.ID, suite.board.ID)
	suite.NoError(err)
	suite.Equal(services.TierOwner, tier)
}

func (suite *AuthorizationTestSuite) TestResolve_Collaborator() {
	tier, err := suite.resolver.Resolve(suite.ctx, suite.grantee.ID, suite.board.ID)
	suite.NoError(err)
	suite.Equal(services.TierCollaborator, tier)
}

func (suite *AuthorizationTestSuite) TestResolve_Unrelated() {
	tier, err := suite.resolver.Resolve(suite.ctx, suite.outsider.ID, suite.board.ID)
	suite.NoError(err)
	suite.Equal(services.TierNone, tier)
}

func (suite *AuthorizationTestSuite) TestResolve_MissingBoardIsNone() {
	tier, err := suite.resolver.Resolve(suite.ctx, suite.owner.ID, uuid.Must(uuid.NewV4()))
	suite.NoError(err)
	suite.Equal(services.TierNone, tier)
}

func (suite *AuthorizationTestSuite) TestResolve_StoreFailureIsNotNone() {
	suite.pool.Close()

	_, err := suite.resolver.Resolve(suite.ctx, suite.owner.ID, suite.board.ID)
	suite.Error(err)
	suite.Equal(services.Kind(""), services.KindOf(err))
}

func TestAuthorizationTestSuite(t *testing.T) {
	suite.Run(t, new(AuthorizationTestSuite))
}

func TestAllows(t *testing.T) {
	tests := []struct {
		tier     services.Tier
		resource services.Resource
		action   services.Action
		allowed  bool
	}{
		{services.TierNone, services.ResourceBoard, services.ActionCreate, true},
		{services.TierNone, services.ResourceBoard, services.ActionRead, false},
		{services.TierCollaborator, services.ResourceBoard, services.ActionRead, true},
		{services.TierCollaborator, services.ResourceBoard, services.ActionUpdate, false},
		{services.TierCollaborator, services.ResourceBoard, services.ActionDelete, false},
		{services.TierOwner, services.ResourceBoard, services.ActionUpdate, true},
		{services.TierOwner, services.ResourceBoard, services.ActionDelete, true},

		{services.TierNone, services.ResourceTask, services.ActionCreate, false},
		{services.TierNone, services.ResourceTask, services.ActionRead, false},
		{services.TierCollaborator, services.ResourceTask, services.ActionCreate, true},
		{services.TierCollaborator, services.ResourceTask, services.ActionUpdate, true},
		{services.TierCollaborator, services.ResourceTask, services.ActionDelete, true},
		{services.TierOwner, services.ResourceTask, services.ActionDelete, true},

		{services.TierCollaborator, services.ResourceSharedUser, services.ActionCreate, false},
		{services.TierCollaborator, services.ResourceSharedUser, services.ActionRead, true},
		{services.TierCollaborator, services.ResourceSharedUser, services.ActionDelete, false},
		{services.TierOwner, services.ResourceSharedUser, services.ActionCreate, true},
		{services.TierOwner, services.ResourceSharedUser, services.ActionDelete, true},
		{services.TierOwner, services.ResourceSharedUser, services.ActionUpdate, false},
	}

	for _, tt := range tests {
		got := services.Allows(tt.tier, tt.resource, tt.action)
		assert.Equal(t, tt.allowed, got, "%s %s %s", tt.tier, tt.action, tt.resource)
	}
}

func TestTier_String(t *testing.T) {
	assert.Equal(t, "owner", services.TierOwner.String())
	assert.Equal(t, "collaborator", services.TierCollaborator.String())
	assert.Equal(t, "none", services.TierNone.String())
}
