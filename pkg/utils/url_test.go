package utils

import (
	"net/url"
	"testing"
)

func TestCompanyName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://www.acme.com/products", "Acme"},
		{"https://shop.example.co.uk", "Shop"},
		{"http://acme-shop.test", "Acme-Shop"},
		{"https://WWW.BIGSTORE.COM", "Bigstore"},
		{"not a url", "Unknown"},
		{"", "Unknown"},
	}
	for _, tt := range tests {
		if got := CompanyName(tt.in); got != tt.want {
			t.Errorf("CompanyName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsAbsoluteHTTP(t *testing.T) {
	tests := map[string]bool{
		"https://x.test/a.jpg":   true,
		"http://x.test":          true,
		"//cdn.test/a.jpg":       false,
		"/img/a.jpg":             false,
		"data:image/gif;base64,": false,
		"ftp://x.test/a.jpg":     false,
		"https://":               false,
	}
	for in, want := range tests {
		if got := IsAbsoluteHTTP(in); got != want {
			t.Errorf("IsAbsoluteHTTP(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestToAbsoluteURL(t *testing.T) {
	base, _ := url.Parse("https://shop.test/category/shoes")
	got, err := ToAbsoluteURL(base, "../p/1")
	if err != nil {
		t.Fatalf("ToAbsoluteURL failed: %v", err)
	}
	if got != "https://shop.test/p/1" {
		t.Errorf("Unexpected absolute URL: %s", got)
	}
}

func TestHashURL_Stable(t *testing.T) {
	a := HashURL("https://shop.test")
	if a != HashURL("https://shop.test") {
		t.Error("Expected identical hashes for identical input")
	}
	if len(a) != 64 {
		t.Errorf("Expected 64 hex chars, got %d", len(a))
	}
	if len(ShortHash("x")) != 32 {
		t.Error("Expected 32 hex chars for ShortHash")
	}
}
