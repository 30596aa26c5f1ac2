package graph

import (
	graphql "github.com/graph-gophers/graphql-go"
	"github.com/kooshamoradpour/G5-TechStore/types"
)

type productResolver struct {
	p types.Product
}

func (r *productResolver) ID() graphql.ID      { return graphql.ID(r.p.ID) }
func (r *productResolver) Name() string        { return r.p.Name }
func (r *productResolver) Description() string { return r.p.Description }
func (r *productResolver) Image() string       { return r.p.Image }
func (r *productResolver) Price() float64      { return r.p.Price }
func (r *productResolver) Stock() int32        { return int32(r.p.Stock) }

type cartItemResolver struct {
	item types.CartItem
}

func (r *cartItemResolver) ProductID() graphql.ID { return graphql.ID(r.item.ProductID) }
func (r *cartItemResolver) Quantity() int32       { return int32(r.item.Quantity) }

func (r *cartItemResolver) Product() *productResolver {
	if r.item.Product == nil {
		return nil
	}
	return &productResolver{p: *r.item.Product}
}

type userResolver struct {
	u types.User
}

func (r *userResolver) ID() graphql.ID   { return graphql.ID(r.u.ID) }
func (r *userResolver) Username() string { return r.u.Username }
func (r *userResolver) Email() string    { return r.u.Email }
func (r *userResolver) IsAdmin() bool    { return r.u.IsAdmin }

func (r *userResolver) Cart() []*cartItemResolver {
	items := make([]*cartItemResolver, 0, len(r.u.Cart))
	for _, item := range r.u.Cart {
		items = append(items, &cartItemResolver{item: item})
	}
	return items
}

type authResolver struct {
	token string
	user  types.User
}

func (r *authResolver) Token() string       { return r.token }
func (r *authResolver) User() *userResolver { return &userResolver{u: r.user} }

type userInput struct {
	Username string
	Email    string
	Password string
}

type cartLineInput struct {
	ProductID graphql.ID
	Quantity  int32
}

type productInput struct {
	Name        string
	Description *string
	Image       *string
	Price       float64
	Stock       *int32
}
