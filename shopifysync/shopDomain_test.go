package shopifysync

import "testing"

func TestNormalizeShopDomain(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"acme-goods", "acme-goods.myshopify.com"},
		{"acme-goods.myshopify.com", "acme-goods.myshopify.com"},
		{"https://acme-goods.myshopify.com/", "acme-goods.myshopify.com"},
		{"https://admin.shopify.com/store/acme-goods", "acme-goods.myshopify.com"},
		{"  ACME-Goods.MyShopify.com  ", "acme-goods.myshopify.com"},
		{"acme-goods.myshopify.com/admin/settings?tab=apps", "acme-goods.myshopify.com"},
	}
	for _, tc := range cases {
		got, err := NormalizeShopDomain(tc.in)
		if err != nil {
			t.Errorf("NormalizeShopDomain(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("NormalizeShopDomain(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeShopDomainRejectsInvalid(t *testing.T) {
	for _, in := range []string{"", "   ", "shop.example.com", "bad domain", ".myshopify.com", "-leading.myshopify.com"} {
		if got, err := NormalizeShopDomain(in); err == nil {
			t.Errorf("NormalizeShopDomain(%q) = %q, want error", in, got)
		}
	}
}

func TestValidateAccessToken(t *testing.T) {
	if err := ValidateAccessToken("shpat_0123456789abcdef"); err != nil {
		t.Errorf("admin token rejected: %v", err)
	}
	if err := ValidateAccessToken("shpca_0123456789abcdef"); err != nil {
		t.Errorf("custom app token rejected: %v", err)
	}
	for _, bad := range []string{"", "short", "not-a-token-at-all", "shp_123456789"} {
		if err := ValidateAccessToken(bad); err == nil {
			t.Errorf("ValidateAccessToken(%q) accepted", bad)
		}
	}
}
