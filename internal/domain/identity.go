package domain

import "strings"

// Session is the transport-level session. CustomerID is set while a customer
// is logged in on the session.
type Session struct {
	ID         string
	CustomerID int64
}

// Identity is what a request asserts about who it acts for: the session it
// arrived on plus an optional token and email.
type Identity struct {
	Session Session
	TokenID string
	Email   string
}

// HasToken reports whether the request asserted a token.
func (i Identity) HasToken() bool {
	return strings.TrimSpace(i.TokenID) != ""
}

// LoggedIn reports whether a customer is logged in on the session.
func (i Identity) LoggedIn() bool {
	return i.Session.CustomerID != 0
}

// CartOwner identifies the storage slot a cart belongs to.
type CartOwner struct {
	SessionID  string
	CustomerID int64
}

// TokenBound reports whether the cart is stored against a customer rather than the session.
func (o CartOwner) TokenBound() bool {
	return o.CustomerID != 0
}
