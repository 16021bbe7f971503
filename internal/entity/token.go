package entity

const UnknownTokenField = "Unknown"

// Token is the metadata shown to the user while a buy or sell flow is active.
// Known is false when the metadata service could not describe the token and
// placeholders are used instead.
type Token struct {
	Address string `json:"address"`
	Symbol  string `json:"symbol"`
	Name    string `json:"name,omitempty"`
	Price   string `json:"price"`
	Known   bool   `json:"known"`
}

func UnknownToken(address string) Token {
	return Token{
		Address: address,
		Symbol:  UnknownTokenField,
		Price:   UnknownTokenField,
	}
}
