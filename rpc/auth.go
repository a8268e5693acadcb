package rpc

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/golang-jwt/jwt/v5"

	"nftescrow/core/genesis"
)

// principal identifies the authenticated client of a mutating request. A
// static-token client may act for any caller; a JWT client only for its
// subject.
type principal struct {
	subject    common.Address
	restricted bool
}

type principalKey struct{}

func withPrincipal(ctx context.Context, p *principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func principalFrom(ctx context.Context) *principal {
	p, _ := ctx.Value(principalKey{}).(*principal)
	return p
}

func (s *Server) requireAuth(r *http.Request) (*principal, *RPCError) {
	if s.cfg.AuthToken == "" && s.cfg.JWTSecret == "" {
		return nil, &RPCError{Code: codeUnauthorized, Message: "RPC authentication not configured"}
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, &RPCError{Code: codeUnauthorized, Message: "missing Authorization header"}
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return nil, &RPCError{Code: codeUnauthorized, Message: "Authorization header must use Bearer scheme"}
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return nil, &RPCError{Code: codeUnauthorized, Message: "missing bearer token"}
	}
	if s.cfg.AuthToken != "" && subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.AuthToken)) == 1 {
		return &principal{}, nil
	}
	if s.cfg.JWTSecret != "" {
		subject, err := s.verifyJWT(token)
		if err != nil {
			return nil, &RPCError{Code: codeUnauthorized, Message: "invalid RPC credentials", Data: err.Error()}
		}
		return &principal{subject: subject, restricted: true}, nil
	}
	return nil, &RPCError{Code: codeUnauthorized, Message: "invalid RPC credentials"}
}

func (s *Server) verifyJWT(raw string) (common.Address, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return common.Address{}, err
	}
	if !parsed.Valid {
		return common.Address{}, fmt.Errorf("token invalid")
	}
	subject, err := genesis.ParseAddress(claims.Subject)
	if err != nil {
		return common.Address{}, fmt.Errorf("subject: %w", err)
	}
	return subject, nil
}

// authorizeCaller parses raw and checks it against the request principal.
func authorizeCaller(r *http.Request, raw string) (common.Address, *RPCError) {
	caller, err := genesis.ParseAddress(raw)
	if err != nil {
		return common.Address{}, &RPCError{Code: codeInvalidParams, Message: "invalid_params", Data: fmt.Sprintf("caller: %v", err)}
	}
	if p := principalFrom(r.Context()); p != nil && p.restricted && p.subject != caller {
		return common.Address{}, &RPCError{Code: codeForbidden, Message: "forbidden", Data: "token subject does not match caller"}
	}
	return caller, nil
}
