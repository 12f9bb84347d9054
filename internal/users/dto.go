package users

import (
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// DeliveryProfile is the recipient block copied onto orders at checkout.
type DeliveryProfile struct {
	UserID       uuid.UUID `json:"user_id"`
	FullName     string    `json:"full_name"`
	Phone        string    `json:"phone"`
	AddressLine  string    `json:"address_line"`
	ProvinceCode int       `json:"province_code"`
	DistrictCode int       `json:"district_code"`
	WardCode     string    `json:"ward_code"`
}

func ProfileFromModel(u *models.User) DeliveryProfile {
	if u == nil {
		return DeliveryProfile{}
	}
	return DeliveryProfile{
		UserID:       u.ID,
		FullName:     strings.TrimSpace(u.FullName),
		Phone:        strings.TrimSpace(u.Phone),
		AddressLine:  strings.TrimSpace(u.AddressLine),
		ProvinceCode: u.ProvinceCode,
		DistrictCode: u.DistrictCode,
		WardCode:     strings.TrimSpace(u.WardCode),
	}
}

// Missing lists the profile fields a shipment cannot go out without.
func (p DeliveryProfile) Missing() []string {
	var missing []string
	if p.FullName == "" {
		missing = append(missing, "full_name")
	}
	if p.Phone == "" {
		missing = append(missing, "phone")
	}
	if p.AddressLine == "" {
		missing = append(missing, "address_line")
	}
	if p.DistrictCode <= 0 {
		missing = append(missing, "district_code")
	}
	if p.WardCode == "" {
		missing = append(missing, "ward_code")
	}
	return missing
}
