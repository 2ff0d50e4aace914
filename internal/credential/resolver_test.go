package credential

import (
	"context"
	"errors"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/stacklok/toolhive-federation/internal/coordination"
	coordmocks "github.com/stacklok/toolhive-federation/internal/coordination/mocks"
	"github.com/stacklok/toolhive-federation/internal/identity"
	"github.com/stacklok/toolhive-federation/internal/secret"
	secretmocks "github.com/stacklok/toolhive-federation/internal/secret/mocks"
	"github.com/stacklok/toolhive-federation/internal/token"
)

func mintToken(t *testing.T, domain string) string {
	t.Helper()

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"did": domain}).
		SignedString([]byte("test-key"))
	require.NoError(t, err)
	return signed
}

func TestResolver_RootToken(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	secrets := secretmocks.NewMockClient(ctrl)
	rootToken := mintToken(t, "d-42")

	// The root token's own domain wins over the caller's
	secrets.EXPECT().GetData(gomock.Any(), rootToken, "s-1", "d-42").
		Return(map[string]any{"token": "abc123"}, nil)

	r := NewResolver(AuthorityConfig{RootToken: rootToken}, secrets, token.NewValidator())
	ctx := WithCaller(context.Background(), Caller{Token: mintToken(t, "d-caller"), DomainID: "d-caller"})

	data, err := r.ResolveSecret(ctx, "s-1", "d-caller")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"token": "abc123"}, data)
}

func TestResolver_RootTokenInfo(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	secrets := secretmocks.NewMockClient(ctrl)
	factory := coordmocks.NewMockClientFactory(ctrl)
	client := coordmocks.NewMockClient(ctrl)
	rootToken := mintToken(t, "d-7")

	factory.EXPECT().NewClient(gomock.Any()).Return(client, nil)
	client.EXPECT().ReadKey(gomock.Any(), "/debug/supervisor/TOKEN").Return(rootToken, true)
	secrets.EXPECT().GetData(gomock.Any(), rootToken, "s-1", "d-7").Return(map[string]any{"token": "t"}, nil)

	authority := AuthorityConfig{RootTokenInfo: &token.Descriptor{
		Protocol: token.ProtocolConsul,
		Config:   coordination.Options{Host: "consul"},
		URI:      "/debug/supervisor/TOKEN",
	}}
	r := NewResolver(authority, secrets, token.NewValidator(token.WithClientFactory(factory)))

	_, err := r.ResolveSecret(context.Background(), "s-1", "d-caller")
	require.NoError(t, err)
}

func TestResolver_LiteralRootTokenInfo(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	secrets := secretmocks.NewMockClient(ctrl)
	factory := coordmocks.NewMockClientFactory(ctrl)
	rootToken := mintToken(t, "d-lit")

	secrets.EXPECT().GetData(gomock.Any(), rootToken, "s-1", "d-lit").Return(map[string]any{}, nil)

	descriptor := token.LiteralDescriptor(rootToken)
	r := NewResolver(AuthorityConfig{RootTokenInfo: &descriptor}, secrets,
		token.NewValidator(token.WithClientFactory(factory)))

	_, err := r.ResolveSecret(context.Background(), "s-1", "d-caller")
	require.NoError(t, err)
}

func TestResolver_CallerToken(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	secrets := secretmocks.NewMockClient(ctrl)
	callerToken := mintToken(t, "d-ignored")

	// Without root credentials the caller-supplied domain is used as is
	secrets.EXPECT().GetData(gomock.Any(), callerToken, "s-1", "d-caller").Return(map[string]any{"token": "x"}, nil)

	r := NewResolver(AuthorityConfig{}, secrets, token.NewValidator())
	ctx := WithCaller(context.Background(), Caller{Token: callerToken})

	_, err := r.ResolveSecret(ctx, "s-1", "d-caller")
	require.NoError(t, err)
}

func TestResolver_EmptyRootTokenInfoFallsBackToCaller(t *testing.T) {
	t.Parallel()

	emptyMapping := token.Descriptor{}
	emptyLiteral := token.LiteralDescriptor("")

	for name, descriptor := range map[string]*token.Descriptor{
		"empty mapping": &emptyMapping,
		"empty literal": &emptyLiteral,
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			secrets := secretmocks.NewMockClient(ctrl)
			// No coordination reads are expected
			factory := coordmocks.NewMockClientFactory(ctrl)
			callerToken := mintToken(t, "d-caller")

			secrets.EXPECT().GetData(gomock.Any(), callerToken, "s-1", "d-caller").
				Return(map[string]any{"token": "abc123"}, nil)

			r := NewResolver(AuthorityConfig{RootTokenInfo: descriptor}, secrets,
				token.NewValidator(token.WithClientFactory(factory)))
			ctx := WithCaller(context.Background(), Caller{Token: callerToken, DomainID: "d-caller"})

			data, err := r.ResolveSecret(ctx, "s-1", "d-caller")
			require.NoError(t, err)
			assert.Equal(t, map[string]any{"token": "abc123"}, data)
		})
	}
}

func TestResolver_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		authority func(t *testing.T) AuthorityConfig
		setup     func(t *testing.T, secrets *secretmocks.MockClient)
		wantErr   error
	}{
		{
			name:      "no authority at all",
			authority: func(*testing.T) AuthorityConfig { return AuthorityConfig{} },
			setup:     func(*testing.T, *secretmocks.MockClient) {},
			wantErr:   ErrNoAuthority,
		},
		{
			name:      "malformed root token",
			authority: func(*testing.T) AuthorityConfig { return AuthorityConfig{RootToken: "abc123"} },
			setup:     func(*testing.T, *secretmocks.MockClient) {},
			wantErr:   token.ErrConfiguration,
		},
		{
			name: "root token without domain",
			authority: func(t *testing.T) AuthorityConfig {
				return AuthorityConfig{RootToken: mintToken(t, "")}
			},
			setup:   func(*testing.T, *secretmocks.MockClient) {},
			wantErr: token.ErrConfiguration,
		},
		{
			name: "unknown descriptor protocol",
			authority: func(*testing.T) AuthorityConfig {
				return AuthorityConfig{RootTokenInfo: &token.Descriptor{Protocol: "etcd", URI: "/x"}}
			},
			setup:   func(*testing.T, *secretmocks.MockClient) {},
			wantErr: token.ErrConfiguration,
		},
		{
			name: "secret not found",
			authority: func(t *testing.T) AuthorityConfig {
				return AuthorityConfig{RootToken: mintToken(t, "d-1")}
			},
			setup: func(_ *testing.T, secrets *secretmocks.MockClient) {
				secrets.EXPECT().GetData(gomock.Any(), gomock.Any(), "s-1", "d-1").Return(nil, secret.ErrSecretNotFound)
			},
			wantErr: secret.ErrSecretNotFound,
		},
		{
			name: "secret service unavailable",
			authority: func(t *testing.T) AuthorityConfig {
				return AuthorityConfig{RootToken: mintToken(t, "d-1")}
			},
			setup: func(_ *testing.T, secrets *secretmocks.MockClient) {
				secrets.EXPECT().GetData(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil, secret.ErrUpstreamUnavailable)
			},
			wantErr: secret.ErrUpstreamUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			secrets := secretmocks.NewMockClient(ctrl)
			tt.setup(t, secrets)

			r := NewResolver(tt.authority(t), secrets, token.NewValidator())
			data, err := r.ResolveSecret(context.Background(), "s-1", "d-caller")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			assert.False(t, errors.Is(err, identity.ErrMalformedToken), "root token errors are not caller errors")
			assert.Nil(t, data)
		})
	}
}

func TestCallerContext(t *testing.T) {
	t.Parallel()

	assert.Empty(t, CallerToken(context.Background()))

	ctx := WithCaller(context.Background(), Caller{Token: "tok", DomainID: "d-1"})
	c, ok := CallerFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, "d-1", c.DomainID)
	assert.Equal(t, "tok", CallerToken(ctx))
}
