package grpc

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophidentity/internal/common"
	"github.com/dmitrijs2005/gophidentity/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

func whoAmI(ctx context.Context, conn *grpc.ClientConn, token string) (*structpb.Struct, error) {
	if token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, common.AuthorizationHeaderName, common.BearerPrefix+token)
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	out := new(structpb.Struct)
	err := conn.Invoke(ctx, WhoAmIMethod, &emptypb.Empty{}, out)
	return out, err
}

func TestWhoAmI_OverTheWire(t *testing.T) {
	iss := newIssuer(t)
	s := NewGRPCServer("", nopLogger{}, iss, stubRoles{roles: []string{"ADMIN", "SELLER"}}, nil)
	conn, cancel, _ := startBufServer(t, s)
	defer cancel()

	tok, err := iss.IssueToken(&models.User{ID: "u-7", UserName: "root"}, []string{"ADMIN"})
	require.NoError(t, err)

	out, err := whoAmI(context.Background(), conn, tok)
	require.NoError(t, err)

	got := out.AsMap()
	assert.Equal(t, "u-7", got["sub"])
	assert.Equal(t, "root", got["name"])
	assert.Equal(t, []any{"ADMIN"}, got["token_roles"])
	assert.Equal(t, []any{"ADMIN", "SELLER"}, got["roles"])
}

func TestWhoAmI_RequiresToken(t *testing.T) {
	s := NewGRPCServer("", nopLogger{}, newIssuer(t), stubRoles{}, nil)
	conn, cancel, _ := startBufServer(t, s)
	defer cancel()

	_, err := whoAmI(context.Background(), conn, "")
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	assert.Equal(t, "missing token", status.Convert(err).Message())

	_, err = whoAmI(context.Background(), conn, "not-a-jwt")
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	assert.Equal(t, "invalid token", status.Convert(err).Message())
}

func TestWhoAmI_StoreErrors(t *testing.T) {
	iss := newIssuer(t)
	tok, err := iss.IssueToken(&models.User{ID: "u-7", UserName: "root"}, nil)
	require.NoError(t, err)

	tests := []struct {
		name string
		err  error
		code codes.Code
	}{
		{"internal", errors.New("boom"), codes.Internal},
		{"deadline", fmt.Errorf("db error: %w", context.DeadlineExceeded), codes.DeadlineExceeded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewGRPCServer("", nopLogger{}, iss, stubRoles{err: tt.err}, nil)
			conn, cancel, _ := startBufServer(t, s)
			defer cancel()

			_, err := whoAmI(context.Background(), conn, tok)
			assert.Equal(t, tt.code, status.Code(err))
		})
	}
}
