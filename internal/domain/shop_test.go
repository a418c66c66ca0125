package domain

import "testing"

func TestSanitizeShopDomain(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "example.myshopify.com", want: "example.myshopify.com"},
		{in: "example", want: "example.myshopify.com"},
		{in: "  Example.MyShopify.com  ", want: "example.myshopify.com"},
		{in: "my-store-2", want: "my-store-2.myshopify.com"},
		{in: "", want: ""},
		{in: "   ", want: ""},
		{in: "evil.com", want: ""},
		{in: "example.myshopify.com.evil.com", want: ""},
		{in: "-leading-dash", want: ""},
		{in: "has space", want: ""},
		{in: "UPPER", want: "upper.myshopify.com"},
		{in: "shop/../../etc", want: ""},
	}

	for _, tt := range tests {
		if got := SanitizeShopDomain(tt.in); got != tt.want {
			t.Fatalf("SanitizeShopDomain(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeShopDomainIdempotent(t *testing.T) {
	once := SanitizeShopDomain("my-store")
	twice := SanitizeShopDomain(once)
	if once != twice {
		t.Fatalf("sanitize not idempotent: %q then %q", once, twice)
	}
}
