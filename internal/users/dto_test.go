package users

import (
	"reflect"
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

func TestDeliveryProfileMissing(t *testing.T) {
	complete := ProfileFromModel(&models.User{
		FullName:     "Tran Thi B",
		Phone:        "0912345678",
		AddressLine:  "5 Hai Ba Trung",
		DistrictCode: 1442,
		WardCode:     "20308",
	})
	if missing := complete.Missing(); len(missing) != 0 {
		t.Fatalf("expected complete profile, missing %v", missing)
	}

	partial := ProfileFromModel(&models.User{FullName: "  ", Phone: "0912345678", WardCode: "1"})
	want := []string{"full_name", "address_line", "district_code"}
	if got := partial.Missing(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
