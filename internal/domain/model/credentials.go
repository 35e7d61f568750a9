package model

// Credentials carries what a platform client needs to authenticate. Either a
// pre-issued access token, or an OAuth2 client-credentials pair plus token URL.
type Credentials struct {
	ClientID     string `json:"client_id,omitempty"`
	ClientSecret string `json:"client_secret,omitempty"`
	AccessToken  string `json:"access_token,omitempty"`
	TokenURL     string `json:"token_url,omitempty"`
}

// Empty reports whether no usable credential material is present.
func (c Credentials) Empty() bool {
	return c.AccessToken == "" && (c.ClientID == "" || c.ClientSecret == "")
}
