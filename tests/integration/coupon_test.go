//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func verifyCoupon(t *testing.T, code, planID string) *http.Response {
	t.Helper()
	return doPostAuth(t, "/coupon/verify", map[string]string{
		"couponCode": code,
		"planId":     planID,
	})
}

func TestVerifyCoupon(t *testing.T) {
	resp := verifyCoupon(t, "SAVE50", "basic")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("verify: status %d", resp.StatusCode)
	}
	body := decodeJSON[verifyCouponResponse](t, resp)
	if body.DiscountedPrice != 249 {
		t.Errorf("discounted price: got %v, want 249", body.DiscountedPrice)
	}
}

func TestVerifyCouponWrongPlan(t *testing.T) {
	resp := verifyCoupon(t, "SAVE50", "premium")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("wrong plan: status %d, want 400", resp.StatusCode)
	}
}

func TestVerifyCouponUnknownCode(t *testing.T) {
	resp := verifyCoupon(t, "NOSUCHCODE", "basic")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown code: status %d, want 404", resp.StatusCode)
	}
}

func TestVerifyCouponCaseSensitive(t *testing.T) {
	resp := verifyCoupon(t, "save50", "basic")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("lowercase code: status %d, want 404", resp.StatusCode)
	}
}

func TestVerifyCouponRequiresAuth(t *testing.T) {
	resp := doPost(t, baseURL+"/coupon/verify", map[string]string{
		"couponCode": "SAVE50",
		"planId":     "basic",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated verify: status %d, want 401", resp.StatusCode)
	}
}
