package httpserver

import (
	"context"
	"net/http"

	"lean-commerce/internal/domain"
	customersvc "lean-commerce/internal/service/customer"
	productsvc "lean-commerce/internal/service/product"
)

type productsEndpoint struct {
	products productService
}

func (e *productsEndpoint) Path() string      { return "/ecommerce/products" }
func (e *productsEndpoint) Methods() []string { return []string{http.MethodGet} }

func (e *productsEndpoint) Args() map[string]arg {
	return map[string]arg{
		"category": {kind: argString, rules: "max=100"},
		"page":     {kind: argInt, rules: "min=1"},
		"per_page": {kind: argInt, rules: "min=1,max=100"},
	}
}

func (e *productsEndpoint) Handle(ctx context.Context, req *request) (*response, error) {
	products, err := e.products.List(ctx, productsvc.ListInput{
		Category: req.text("category"),
		Page:     int(req.number("page")),
		PerPage:  int(req.number("per_page")),
	})
	if err != nil {
		return nil, err
	}
	return jsonOK(products), nil
}

// authResponse pairs a customer with the token_id clients pass on later calls.
type authResponse struct {
	Customer *domain.Customer `json:"customer"`
	TokenID  string           `json:"token_id"`
}

type customersEndpoint struct {
	customers customerService
}

func (e *customersEndpoint) Path() string      { return "/ecommerce/customers" }
func (e *customersEndpoint) Methods() []string { return []string{http.MethodPost} }

func (e *customersEndpoint) Args() map[string]arg {
	return map[string]arg{
		"email":      {kind: argString, required: true, rules: "email,max=255"},
		"password":   {kind: argString, required: true, rules: "min=8,max=128"},
		"first_name": {kind: argString, rules: "max=100"},
		"last_name":  {kind: argString, rules: "max=100"},
	}
}

func (e *customersEndpoint) Handle(ctx context.Context, req *request) (*response, error) {
	customer, token, err := e.customers.Signup(ctx, customersvc.SignupInput{
		Email:     req.text("email"),
		Password:  req.text("password"),
		FirstName: req.text("first_name"),
		LastName:  req.text("last_name"),
	})
	if err != nil {
		return nil, err
	}
	return jsonCreated(authResponse{Customer: customer, TokenID: token}), nil
}

type loginEndpoint struct {
	customers customerService
	sessions  sessionService
}

func (e *loginEndpoint) Path() string      { return "/ecommerce/login" }
func (e *loginEndpoint) Methods() []string { return []string{http.MethodPost} }

func (e *loginEndpoint) Args() map[string]arg {
	return map[string]arg{
		"email":    {kind: argString, required: true, rules: "email"},
		"password": {kind: argString, required: true},
	}
}

// Handle logs the customer in on the current session as well as returning a token.
func (e *loginEndpoint) Handle(ctx context.Context, req *request) (*response, error) {
	customer, token, err := e.customers.Login(ctx, req.text("email"), req.text("password"))
	if err != nil {
		return nil, err
	}
	if err := e.sessions.Login(ctx, req.identity.Session.ID, customer.ID); err != nil {
		return nil, err
	}
	return jsonOK(authResponse{Customer: customer, TokenID: token}), nil
}

type logoutEndpoint struct {
	sessions sessionService
}

func (e *logoutEndpoint) Path() string         { return "/ecommerce/logout" }
func (e *logoutEndpoint) Methods() []string    { return []string{http.MethodPost} }
func (e *logoutEndpoint) Args() map[string]arg { return nil }

func (e *logoutEndpoint) Handle(ctx context.Context, req *request) (*response, error) {
	if err := e.sessions.Logout(ctx, req.identity.Session.ID); err != nil {
		return nil, err
	}
	return jsonOK(map[string]bool{"logged_out": true}), nil
}
