package jwt_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgjwt "github.com/rukioi/legal-saas-api/pkg/jwt"
)

const (
	testSecret   = "test-secret-key-for-unit-tests"
	testIssuer   = "legal-saas-test"
	testAudience = "legal-saas-app"
)

func newSigner(t *testing.T, secret, issuer, audience string, ttl time.Duration) *pkgjwt.Signer {
	t.Helper()
	s, err := pkgjwt.NewSigner(secret, issuer, audience, ttl)
	require.NoError(t, err)
	return s
}

func TestSigner_GenerateAndParse_Usuario(t *testing.T) {
	s := newSigner(t, testSecret, testIssuer, testAudience, time.Hour)
	tok, exp, err := s.Generate(pkgjwt.Payload{UserID: "u-1", Email: "a@x.com", Name: "Ana", TenantID: "T1", AccountType: "COMPOSTA"})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := s.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "u-1", claims.Subject)
	assert.Equal(t, "T1", claims.TenantID)
	assert.Equal(t, "COMPOSTA", claims.AccountType)
	assert.Empty(t, claims.Role)
	assert.NotEmpty(t, claims.ID)
}

func TestSigner_JTIUnicoPorToken(t *testing.T) {
	s := newSigner(t, testSecret, testIssuer, testAudience, time.Hour)
	p := pkgjwt.Payload{UserID: "u-1"}
	a, _, err := s.Generate(p)
	require.NoError(t, err)
	b, _, err := s.Generate(p)
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "dos tokens emitidos en el mismo segundo deben diferir")
}

func TestSigner_TokenExpirado(t *testing.T) {
	s := newSigner(t, testSecret, testIssuer, testAudience, -time.Minute)
	tok, _, err := s.Generate(pkgjwt.Payload{UserID: "u-1"})
	require.NoError(t, err)

	_, err = s.Parse(tok)
	assert.ErrorIs(t, err, pkgjwt.ErrExpired)
}

func TestSigner_SecretIncorrecto(t *testing.T) {
	tok, _, err := newSigner(t, testSecret, testIssuer, testAudience, time.Hour).Generate(pkgjwt.Payload{UserID: "u-1"})
	require.NoError(t, err)

	_, err = newSigner(t, "otro-secret", testIssuer, testAudience, time.Hour).Parse(tok)
	assert.Error(t, err)
}

// Un token de un contexto (issuer/audience) no debe aceptarse en otro aunque comparta secreto.
func TestSigner_RechazaOtroIssuerOAudience(t *testing.T) {
	tok, _, err := newSigner(t, testSecret, testIssuer, testAudience, time.Hour).Generate(pkgjwt.Payload{UserID: "u-1"})
	require.NoError(t, err)

	_, err = newSigner(t, testSecret, "otro-issuer", testAudience, time.Hour).Parse(tok)
	assert.Error(t, err)

	_, err = newSigner(t, testSecret, testIssuer, "otra-audience", time.Hour).Parse(tok)
	assert.Error(t, err)
}

func TestNewSigner_SecretVacio(t *testing.T) {
	_, err := pkgjwt.NewSigner("", testIssuer, testAudience, time.Hour)
	assert.Error(t, err)
}

func TestSigner_Malformado(t *testing.T) {
	_, err := newSigner(t, testSecret, testIssuer, testAudience, time.Hour).Parse("token.invalido.aqui")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, pkgjwt.ErrExpired)
}
