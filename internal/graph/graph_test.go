package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kooshamoradpour/G5-TechStore/internal/auth"
	"github.com/kooshamoradpour/G5-TechStore/internal/handlers"
	"github.com/kooshamoradpour/G5-TechStore/internal/services"
	"github.com/kooshamoradpour/G5-TechStore/internal/store/memory"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type gqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message    string         `json:"message"`
		Extensions map[string]any `json:"extensions"`
	} `json:"errors"`
}

func (r gqlResponse) code() string {
	if len(r.Errors) == 0 {
		return ""
	}
	code, _ := r.Errors[0].Extensions["code"].(string)
	return code
}

type client struct {
	t        *testing.T
	handler  http.Handler
	db       *memory.DB
	accounts *services.AccountService
}

func newClient(t *testing.T) *client {
	t.Helper()
	db := memory.New()
	hasher, err := auth.NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)
	issuer, err := auth.NewIssuer([]byte("graph-secret"), 2*time.Hour)
	require.NoError(t, err)
	log := zerolog.Nop()

	accounts := services.NewAccountService(db.Users(), db.Carts(), hasher, issuer, nil, log)
	catalog := services.NewCatalogService(db.Products(), nil, nil, log)
	cart := services.NewCartService(db.Users(), db.Carts(), nil, log)

	h, err := NewHandler(accounts, catalog, cart, log)
	require.NoError(t, err)

	return &client{
		t:        t,
		handler:  handlers.Authenticate(issuer, log)(h),
		db:       db,
		accounts: accounts,
	}
}

func (c *client) exec(token, query string, vars map[string]any, out any) gqlResponse {
	c.t.Helper()
	body, err := json.Marshal(map[string]any{"query": query, "variables": vars})
	require.NoError(c.t, err)

	req := httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)
	require.Equal(c.t, http.StatusOK, rec.Code)

	var resp gqlResponse
	require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), &resp))
	if out != nil && len(resp.Errors) == 0 {
		require.NoError(c.t, json.Unmarshal(resp.Data, out))
	}
	return resp
}

const addUserMutation = `
mutation AddUser($input: UserInput!) {
  addUser(input: $input) { token user { id username email isAdmin cart { productId quantity } } }
}`

const loginMutation = `
mutation Login($email: String!, $password: String!) {
  login(email: $email, password: $password) { token user { id username } }
}`

const meQuery = `{ me { id username email cart { productId quantity product { id name price } } } }`

const saveMutation = `
mutation Save($input: CartLineInput!) {
  saveProductToCart(input: $input) { cart { productId quantity product { name } } }
}`

const updateMutation = `
mutation Update($input: CartLineInput!) {
  updateQuantity(input: $input) { cart { productId quantity } }
}`

const removeMutation = `
mutation Remove($id: ID!) {
  removeProductFromCart(productId: $id) { cart { productId quantity } }
}`

const addProductMutation = `
mutation AddProduct($input: ProductInput!) {
  addProductToDB(input: $input) { id name price stock }
}`

type cartLine struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Product   *struct {
		Name string `json:"name"`
	} `json:"product"`
}

type authPayload struct {
	Token string `json:"token"`
	User  struct {
		ID       string     `json:"id"`
		Username string     `json:"username"`
		Email    string     `json:"email"`
		IsAdmin  bool       `json:"isAdmin"`
		Cart     []cartLine `json:"cart"`
	} `json:"user"`
}

func (c *client) addUser(username, email, password string) authPayload {
	c.t.Helper()
	var out struct {
		AddUser authPayload `json:"addUser"`
	}
	resp := c.exec("", addUserMutation, map[string]any{
		"input": map[string]any{"username": username, "email": email, "password": password},
	}, &out)
	require.Empty(c.t, resp.Errors)
	return out.AddUser
}

func (c *client) adminToken() string {
	c.t.Helper()
	c.addUser("root", "root@x.com", "rootpass")
	_, err := c.accounts.SetAdmin(context.Background(), "root@x.com", true)
	require.NoError(c.t, err)
	var out struct {
		Login authPayload `json:"login"`
	}
	resp := c.exec("", loginMutation, map[string]any{"email": "root@x.com", "password": "rootpass"}, &out)
	require.Empty(c.t, resp.Errors)
	return out.Login.Token
}

func (c *client) addProduct(token, name string, price float64) string {
	c.t.Helper()
	var out struct {
		AddProductToDB struct {
			ID string `json:"id"`
		} `json:"addProductToDB"`
	}
	resp := c.exec(token, addProductMutation, map[string]any{
		"input": map[string]any{"name": name, "price": price, "stock": 5},
	}, &out)
	require.Empty(c.t, resp.Errors)
	return out.AddProductToDB.ID
}

func TestAliceScenario(t *testing.T) {
	c := newClient(t)
	productID := c.addProduct(c.adminToken(), "Keyboard", 89.99)

	alice := c.addUser("alice", "alice@x.com", "hunter2")
	assert.NotEmpty(t, alice.Token)
	assert.Equal(t, "alice", alice.User.Username)
	assert.False(t, alice.User.IsAdmin)
	assert.Empty(t, alice.User.Cart)

	var login struct {
		Login authPayload `json:"login"`
	}
	resp := c.exec("", loginMutation, map[string]any{"email": "alice@x.com", "password": "hunter2"}, &login)
	require.Empty(t, resp.Errors)
	token := login.Login.Token
	require.NotEmpty(t, token)

	var saved struct {
		SaveProductToCart struct {
			Cart []cartLine `json:"cart"`
		} `json:"saveProductToCart"`
	}
	resp = c.exec(token, saveMutation, map[string]any{"input": map[string]any{"productId": productID, "quantity": 2}}, &saved)
	require.Empty(t, resp.Errors)
	require.Len(t, saved.SaveProductToCart.Cart, 1)
	assert.Equal(t, 2, saved.SaveProductToCart.Cart[0].Quantity)
	require.NotNil(t, saved.SaveProductToCart.Cart[0].Product)
	assert.Equal(t, "Keyboard", saved.SaveProductToCart.Cart[0].Product.Name)

	var updated struct {
		UpdateQuantity struct {
			Cart []cartLine `json:"cart"`
		} `json:"updateQuantity"`
	}
	resp = c.exec(token, updateMutation, map[string]any{"input": map[string]any{"productId": productID, "quantity": 5}}, &updated)
	require.Empty(t, resp.Errors)
	require.Len(t, updated.UpdateQuantity.Cart, 1)
	assert.Equal(t, 5, updated.UpdateQuantity.Cart[0].Quantity)

	var removed struct {
		RemoveProductFromCart struct {
			Cart []cartLine `json:"cart"`
		} `json:"removeProductFromCart"`
	}
	resp = c.exec(token, removeMutation, map[string]any{"id": productID}, &removed)
	require.Empty(t, resp.Errors)
	assert.Empty(t, removed.RemoveProductFromCart.Cart)

	resp = c.exec(token, removeMutation, map[string]any{"id": productID}, &removed)
	require.Empty(t, resp.Errors)
	assert.Empty(t, removed.RemoveProductFromCart.Cart)

	resp = c.exec(token, updateMutation, map[string]any{"input": map[string]any{"productId": productID, "quantity": 1}}, nil)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, services.CodeLineNotFound, resp.code())

	var me struct {
		Me struct {
			Cart []cartLine `json:"cart"`
		} `json:"me"`
	}
	resp = c.exec(token, meQuery, nil, &me)
	require.Empty(t, resp.Errors)
	assert.Empty(t, me.Me.Cart)
}

func TestRepeatedSaveOverwritesQuantity(t *testing.T) {
	c := newClient(t)
	productID := c.addProduct(c.adminToken(), "Mouse", 19.5)
	token := c.addUser("alice", "alice@x.com", "hunter2").Token

	var saved struct {
		SaveProductToCart struct {
			Cart []cartLine `json:"cart"`
		} `json:"saveProductToCart"`
	}
	for _, qty := range []int{2, 3} {
		resp := c.exec(token, saveMutation, map[string]any{"input": map[string]any{"productId": productID, "quantity": qty}}, &saved)
		require.Empty(t, resp.Errors)
	}
	require.Len(t, saved.SaveProductToCart.Cart, 1)
	assert.Equal(t, 3, saved.SaveProductToCart.Cart[0].Quantity)

	resp := c.exec(token, saveMutation, map[string]any{"input": map[string]any{"productId": productID, "quantity": 0}}, nil)
	assert.Equal(t, services.CodeInvalidQuantity, resp.code())
}

func TestAnonymousCallers(t *testing.T) {
	c := newClient(t)
	productID := c.addProduct(c.adminToken(), "Mouse", 19.5)

	resp := c.exec("", meQuery, nil, nil)
	assert.Equal(t, services.CodeUnauthenticated, resp.code())

	resp = c.exec("", saveMutation, map[string]any{"input": map[string]any{"productId": productID, "quantity": 1}}, nil)
	assert.Equal(t, services.CodeUnauthenticated, resp.code())

	resp = c.exec("expired.or.forged", meQuery, nil, nil)
	assert.Equal(t, services.CodeUnauthenticated, resp.code())

	resp = c.exec("", addProductMutation, map[string]any{"input": map[string]any{"name": "X", "price": 1.0}}, nil)
	assert.Equal(t, services.CodeUnauthenticated, resp.code())
}

func TestAddProductRequiresAdmin(t *testing.T) {
	c := newClient(t)
	token := c.addUser("alice", "alice@x.com", "hunter2").Token

	resp := c.exec(token, addProductMutation, map[string]any{"input": map[string]any{"name": "Monitor", "price": 199.99}}, nil)
	assert.Equal(t, services.CodeForbidden, resp.code())

	c.addProduct(c.adminToken(), "Monitor", 199.99)

	var all struct {
		GetAllProducts []struct {
			Name  string  `json:"name"`
			Price float64 `json:"price"`
			Stock int     `json:"stock"`
		} `json:"getAllProducts"`
	}
	resp = c.exec("", `{ getAllProducts { name price stock } }`, nil, &all)
	require.Empty(t, resp.Errors)
	require.Len(t, all.GetAllProducts, 1)
	assert.Equal(t, "Monitor", all.GetAllProducts[0].Name)
	assert.InDelta(t, 199.99, all.GetAllProducts[0].Price, 1e-9)
	assert.Equal(t, 5, all.GetAllProducts[0].Stock)
}

func TestProductByName(t *testing.T) {
	c := newClient(t)
	c.addProduct(c.adminToken(), "Monitor", 199.99)

	var out struct {
		Product *struct {
			Name string `json:"name"`
		} `json:"product"`
	}
	resp := c.exec("", `query P($name: String!) { product(name: $name) { name } }`, map[string]any{"name": "Monitor"}, &out)
	require.Empty(t, resp.Errors)
	require.NotNil(t, out.Product)
	assert.Equal(t, "Monitor", out.Product.Name)

	resp = c.exec("", `query P($name: String!) { product(name: $name) { name } }`, map[string]any{"name": "Nope"}, nil)
	assert.Equal(t, services.CodeNotFound, resp.code())
}

func TestDuplicateRegistrationAndBadLogin(t *testing.T) {
	c := newClient(t)
	c.addUser("alice", "alice@x.com", "hunter2")

	resp := c.exec("", addUserMutation, map[string]any{
		"input": map[string]any{"username": "alice2", "email": "alice@x.com", "password": "hunter2"},
	}, nil)
	assert.Equal(t, services.CodeDuplicateIdentity, resp.code())

	resp = c.exec("", loginMutation, map[string]any{"email": "alice@x.com", "password": "hunter3"}, nil)
	assert.Equal(t, services.CodeInvalidCredentials, resp.code())

	resp = c.exec("", loginMutation, map[string]any{"email": "nobody@x.com", "password": "hunter2"}, nil)
	assert.Equal(t, services.CodeInvalidCredentials, resp.code())
}

func TestDanglingCartProductIsNull(t *testing.T) {
	c := newClient(t)
	productID := c.addProduct(c.adminToken(), "Mouse", 19.5)
	token := c.addUser("alice", "alice@x.com", "hunter2").Token

	resp := c.exec(token, saveMutation, map[string]any{"input": map[string]any{"productId": productID, "quantity": 1}}, nil)
	require.Empty(t, resp.Errors)
	require.NoError(t, c.db.Products().Delete(context.Background(), productID))

	var me struct {
		Me struct {
			Cart []cartLine `json:"cart"`
		} `json:"me"`
	}
	resp = c.exec(token, meQuery, nil, &me)
	require.Empty(t, resp.Errors)
	require.Len(t, me.Me.Cart, 1)
	assert.Equal(t, productID, me.Me.Cart[0].ProductID)
	assert.Nil(t, me.Me.Cart[0].Product)
}

func TestChangePasswordMutation(t *testing.T) {
	c := newClient(t)
	token := c.addUser("alice", "alice@x.com", "hunter2").Token

	var out struct {
		ChangePassword bool `json:"changePassword"`
	}
	resp := c.exec(token, `mutation { changePassword(currentPassword: "hunter2", newPassword: "hunter22") }`, nil, &out)
	require.Empty(t, resp.Errors)
	assert.True(t, out.ChangePassword)

	resp = c.exec("", loginMutation, map[string]any{"email": "alice@x.com", "password": "hunter22"}, nil)
	assert.Empty(t, resp.Errors)
}
