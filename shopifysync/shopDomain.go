package shopifysync

import (
	"errors"
	"regexp"
	"strings"
)

const shopDomainSuffix = ".myshopify.com"

var shopHandleRe = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// NormalizeShopDomain canonicalizes user-entered shop identifiers to the
// bare *.myshopify.com host. Accepts a plain store handle, a host, or a
// pasted admin URL. Custom storefront domains are rejected, the admin API
// only answers on the myshopify host.
func NormalizeShopDomain(raw string) (string, error) {
	domain := strings.ToLower(strings.TrimSpace(raw))
	domain = strings.TrimPrefix(domain, "https://")
	domain = strings.TrimPrefix(domain, "http://")
	domain = strings.TrimPrefix(domain, "admin.shopify.com/store/")
	if i := strings.IndexAny(domain, "/?#"); i >= 0 {
		domain = domain[:i]
	}
	domain = strings.TrimSuffix(domain, shopDomainSuffix)
	if domain == "" || !shopHandleRe.MatchString(domain) {
		return "", errors.New("invalid shop domain")
	}
	return domain + shopDomainSuffix, nil
}

// ValidateAccessToken rejects values that cannot be a Shopify admin API
// token. Tokens carry a type prefix; anything else is a paste mistake, catch
// it before the first sync fails with a 401.
func ValidateAccessToken(token string) error {
	token = strings.TrimSpace(token)
	if len(token) < 10 {
		return errors.New("access token is too short")
	}
	for _, prefix := range []string{"shpat_", "shpca_", "shpua_"} {
		if strings.HasPrefix(token, prefix) {
			return nil
		}
	}
	return errors.New("access token must be a Shopify admin API token")
}
