package authz

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/worklane/worklane-backend/pkg/errors"
)

func TestAdminEmailAuthorizer(t *testing.T) {
	authorizer := NewAdminEmailAuthorizer([]string{"Ops@Worklane.id", " finance@worklane.id "})

	admin := Actor{UserID: uuid.New(), Email: "ops@worklane.id"}
	require.NoError(t, authorizer.Can(context.Background(), admin, CapDecidePayouts))
	require.NoError(t, authorizer.Can(context.Background(), admin, CapManageGateways))

	outsider := Actor{UserID: uuid.New(), Email: "client@example.com"}
	err := authorizer.Can(context.Background(), outsider, CapDecidePayouts)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())
}

func TestAdminEmailAuthorizerRequiresIdentity(t *testing.T) {
	authorizer := NewAdminEmailAuthorizer([]string{"ops@worklane.id"})

	err := authorizer.Can(context.Background(), Actor{Email: "ops@worklane.id"}, CapDecidePayouts)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())
}
