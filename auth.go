package main

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const identityContextKey = "identity"

// Identity é a identidade resolvida do token e repassada explicitamente aos
// casos de uso.
type Identity struct {
	Matricula  string
	Permission string
}

// authClaims estende as claims padrão com o nível de acesso
type authClaims struct {
	jwt.RegisteredClaims
	Permissao string `json:"permissao"`
}

// TokenManager emite e valida tokens HS256 de vida limitada
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager cria um TokenManager
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl}
}

// Generate emite um token assinado com sub = matrícula e o nível de acesso.
func (tm *TokenManager) Generate(user *User) (string, error) {
	now := time.Now()
	claims := authClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Matricula,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.ttl)),
		},
		Permissao: user.Permission,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.secret)
}

// Validate verifica assinatura e expiração e devolve a identidade do portador.
func (tm *TokenManager) Validate(tokenString string) (*Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &authClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return tm.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}

	claims, ok := token.Claims.(*authClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, errors.New("invalid token claims")
	}
	return &Identity{Matricula: claims.Subject, Permission: claims.Permissao}, nil
}

// AuthRequired valida o bearer token e anexa a identidade ao contexto da
// requisição. Sem identidade resolvida a requisição é rejeitada com 401.
func AuthRequired(tm *TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Autenticação necessária. Matrícula ausente no Header.",
			})
			return
		}

		identity, err := tm.Validate(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Token inválido ou expirado.",
			})
			return
		}

		c.Set(identityContextKey, *identity)
		c.Next()
	}
}

// RequirePermission exige um dos níveis de acesso dados. Tentativas sem
// permissão são auditadas e rejeitadas com 403, distinto do 401 de
// autenticação ausente.
func RequirePermission(audit AuditSink, levels ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := identityFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Autenticação necessária.",
			})
			return
		}

		if !slices.Contains(levels, identity.Permission) {
			audit.Append(c.Request.Context(), identity.Matricula, AuditModuleUsersAdmin, "Acesso Negado",
				fmt.Sprintf("Tentativa de acesso a %s sem permissão %s.", c.FullPath(), strings.Join(levels, "/")))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "Acesso negado. Requer permissão de Admin ou Gerente.",
			})
			return
		}

		c.Next()
	}
}

func identityFrom(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(identityContextKey)
	if !ok {
		return Identity{}, false
	}
	identity, ok := v.(Identity)
	return identity, ok
}
