package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runToken(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return strings.TrimSpace(out.String()), err
}

func TestMint_SignsAdminToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "ops-secret")

	raw, err := runToken(t, "mint", "--user-id", "7", "--ttl", "5m")
	require.NoError(t, err)

	tok, err := jwt.Parse(raw, func(*jwt.Token) (interface{}, error) { return []byte("ops-secret"), nil })
	require.NoError(t, err)
	claims := tok.Claims.(jwt.MapClaims)
	assert.Equal(t, "ADMIN", claims["role"])
	assert.Equal(t, float64(7), claims["sub"])
}

func TestMint_Errors(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := runToken(t, "mint")
	assert.ErrorContains(t, err, "JWT_SECRET")

	t.Setenv("JWT_SECRET", "ops-secret")
	_, err = runToken(t, "mint", "--ttl", "0s")
	assert.ErrorContains(t, err, "ttl")
}
