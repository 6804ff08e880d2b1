package oauthapi

import "github.com/gofiber/fiber/v2"

// discoveryDocument is the OIDC discovery document served at
// /.well-known/openid-configuration (§4.5).
type discoveryDocument struct {
	Issuer                        string   `json:"issuer"`
	AuthorizationEndpoint         string   `json:"authorization_endpoint"`
	TokenEndpoint                 string   `json:"token_endpoint"`
	UserinfoEndpoint              string   `json:"userinfo_endpoint"`
	RevocationEndpoint            string   `json:"revocation_endpoint"`
	JwksURI                       string   `json:"jwks_uri,omitempty"`
	ResponseTypesSupported        []string `json:"response_types_supported"`
	SubjectTypesSupported         []string `json:"subject_types_supported"`
	IDTokenSigningAlgValues       []string `json:"id_token_signing_alg_values_supported"`
	ScopesSupported               []string `json:"scopes_supported"`
	TokenEndpointAuthMethods      []string `json:"token_endpoint_auth_methods_supported"`
	GrantTypesSupported           []string `json:"grant_types_supported"`
	CodeChallengeMethodsSupported []string `json:"code_challenge_methods_supported"`
	ClaimsSupported               []string `json:"claims_supported"`
}

// Discovery handles GET /.well-known/openid-configuration. The issuer is
// either the configured fixed value or derived from the inbound request.
func (h *Handlers) Discovery(c *fiber.Ctx) error {
	issuer := h.issuer(c)
	doc := discoveryDocument{
		Issuer:                        issuer,
		AuthorizationEndpoint:         issuer + "/oauth/authorize",
		TokenEndpoint:                 issuer + "/oauth/token",
		UserinfoEndpoint:              issuer + "/oauth/userinfo",
		RevocationEndpoint:            issuer + "/oauth/revoke",
		ResponseTypesSupported:        []string{"code"},
		SubjectTypesSupported:         []string{"public"},
		IDTokenSigningAlgValues:       []string{"HS256"},
		ScopesSupported:               []string{"openid", "profile", "email"},
		TokenEndpointAuthMethods:      []string{"client_secret_post", "client_secret_basic", "none"},
		GrantTypesSupported:           []string{"authorization_code", "refresh_token"},
		CodeChallengeMethodsSupported: []string{"S256", "plain"},
		ClaimsSupported:               []string{"sub", "email", "name", "given_name", "family_name", "department"},
	}
	return c.JSON(doc)
}

func (h *Handlers) issuer(c *fiber.Ctx) string {
	if h.Issuer != "" {
		return h.Issuer
	}
	return c.Protocol() + "://" + c.Hostname()
}
