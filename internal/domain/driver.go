package domain

import "time"

// Driver represents a registered driver. The ID is the driver's Telegram
// user id.
type Driver struct {
	ID        int64
	Name      string
	Phone     string
	CreatedAt time.Time
}

// DriverProfile is the display data attached to a driver's candidacy.
type DriverProfile struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Profile returns the display data for the driver.
func (d *Driver) Profile() *DriverProfile {
	return &DriverProfile{Name: d.Name, Phone: d.Phone}
}
