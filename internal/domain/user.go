package domain

// User is a contact record stored at users/{key}, where key is the encoded
// email. Field names match the persisted layout, including the historical
// capital-P ProfileImage.
type User struct {
	FullName     string `json:"fullName,omitempty"`
	Email        string `json:"email"`
	Phone        string `json:"phone,omitempty"`
	ProfileImage string `json:"ProfileImage,omitempty"`
	Active       bool   `json:"active,omitempty"`
	LastOnline   int64  `json:"lastOnline,omitempty"` // ms since epoch, stamped on logout
	FCMToken     string `json:"fcmToken,omitempty"`
	APNSToken    string `json:"apnsToken,omitempty"`
}

// Key returns the user's tree key.
func (u User) Key() string {
	return EncodeUserID(u.Email)
}

// Session is the signed-in identity carried by the client, mirroring the
// auth provider's currentUser surface.
type Session struct {
	UserID      string // encoded email key
	Email       string
	DisplayName string
	PhotoURL    string
	Token       string // session JWT
}
