package models

// Address is a saved shipping address. The store keeps the legacy
// column names state and zip; the wire uses province and postalCode.
type Address struct {
	ID         string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID     string `json:"-" gorm:"index;type:varchar(36);not null"`
	Position   int    `json:"-" gorm:"not null"`
	Name       string `json:"name" gorm:"type:varchar(100)"`
	Street     string `json:"street" gorm:"type:varchar(255)"`
	City       string `json:"city" gorm:"type:varchar(100)"`
	Province   string `json:"province" gorm:"column:state;type:varchar(100)"`
	PostalCode string `json:"postalCode" gorm:"column:zip;type:varchar(20)"`
	Phone      string `json:"phone" gorm:"type:varchar(32)"`
	IsDefault  bool   `json:"isDefault" gorm:"not null;default:false"`
}

// DefaultAddress returns the default address in list, if any.
func DefaultAddress(list []Address) (Address, bool) {
	for _, a := range list {
		if a.IsDefault {
			return a, true
		}
	}
	return Address{}, false
}
