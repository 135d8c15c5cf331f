package httpserver

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/craftberry/shop/internal/auth"
	"github.com/craftberry/shop/internal/blobstore"
	"github.com/craftberry/shop/internal/identity"
	"github.com/craftberry/shop/internal/kvstore"
	authmw "github.com/craftberry/shop/internal/middleware/auth"
	"github.com/craftberry/shop/internal/models"
	"github.com/craftberry/shop/internal/repository"
	"github.com/craftberry/shop/internal/service/notification"
	"github.com/craftberry/shop/internal/service/order"
	"github.com/craftberry/shop/internal/service/reset"
	"github.com/craftberry/shop/internal/service/search"
)

const testAdminKey = "test-admin-key"

type testEnv struct {
	e        *echo.Echo
	kv       kvstore.Store
	users    *repository.Users
	provider identity.Provider
	blobDir  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	kv := kvstore.NewMem()
	users := repository.NewUsers(kv)
	products := repository.NewProducts(kv)
	carts := repository.NewCarts(kv)
	wishlists := repository.NewWishlists(kv)
	orders := repository.NewOrders(kv)
	provider := identity.NewLocal(kv, []byte("test-secret"))
	notifications := notification.New(kv)

	blobDir := t.TempDir()
	blobs, err := blobstore.NewFS(blobDir, "http://test/uploads")
	require.NoError(t, err)
	gallery := repository.NewGallery(kv, blobs)
	testimonials := repository.NewTestimonials(kv)

	orderSvc := &order.Service{
		Orders:        orders,
		Carts:         carts,
		Users:         users,
		Notifications: notifications,
	}

	e := echo.New()
	Register(e, &Deps{
		Auth: &AuthHTTP{
			Provider: provider,
			Users:    users,
			Reset:    reset.New(kv, users, provider),
			AdminKey: testAdminKey,
		},
		Products:      &ProductHTTP{Products: products, Searcher: search.New(nil, "products")},
		Cart:          &CartHTTP{Carts: carts},
		Wishlist:      &WishlistHTTP{Wishlists: wishlists},
		Orders:        &OrderHTTP{Orders: orders, Service: orderSvc},
		Gallery:       &GalleryHTTP{Gallery: gallery, Blobs: blobs},
		Testimonials:  &TestimonialHTTP{Testimonials: testimonials},
		Notifications: &NotificationHTTP{Notifications: notifications},
		Stats:         &StatsHTTP{Orders: orders, Users: users, Products: products},
		AuthMW:        authmw.New(auth.NewGate(provider, users)),
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	return &testEnv{e: e, kv: kv, users: users, provider: provider, blobDir: blobDir}
}

func (env *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func (env *testEnv) signup(t *testing.T, email string) string {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/auth/signup", "", map[string]string{
		"email": email, "password": "password1", "name": "Test User",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	token, _ := decode(t, rec)["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func (env *testEnv) signupAdmin(t *testing.T, email string) string {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/auth/admin-signup", "", map[string]string{
		"email": email, "password": "password1", "admin_key": testAdminKey,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	token, _ := decode(t, rec)["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestSignupAndLogin(t *testing.T) {
	env := newTestEnv(t)

	token := env.signup(t, "alice@example.com")

	rec := env.do(t, http.MethodGet, "/auth/user", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	user := decode(t, rec)["user"].(map[string]any)
	require.Equal(t, "alice@example.com", user["email"])
	require.Equal(t, models.RoleUser, user["role"])

	rec = env.do(t, http.MethodPost, "/auth/signup", "", map[string]string{
		"email": "alice@example.com", "password": "other",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "user already exists", decode(t, rec)["error"])

	rec = env.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "password1",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, false, decode(t, rec)["is_admin"])

	rec = env.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminSignupWrongKeyPersistsNothing(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/auth/admin-signup", "", map[string]string{
		"email": "evil@example.com", "password": "pw", "admin_key": "wrong",
	})
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "invalid admin key", decode(t, rec)["error"])

	rec = env.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "evil@example.com", "password": "pw",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProductRoleGating(t *testing.T) {
	env := newTestEnv(t)
	userToken := env.signup(t, "user@example.com")
	adminToken := env.signupAdmin(t, "admin@example.com")

	payload := map[string]any{"name": "mug", "price": 9.5, "count": 3}

	rec := env.do(t, http.MethodPost, "/products", "", payload)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/products", userToken, payload)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "not enough rights", decode(t, rec)["error"])

	rec = env.do(t, http.MethodPost, "/products", adminToken, payload)
	require.Equal(t, http.StatusCreated, rec.Code)
	prod := decode(t, rec)["product"].(map[string]any)
	id := prod["id"].(string)
	require.NotEmpty(t, id)

	// reads stay public
	rec = env.do(t, http.MethodGet, "/products", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodGet, "/products/"+id, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPut, "/products/"+id, adminToken, map[string]any{"price": 12.0})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode(t, rec)["product"].(map[string]any)
	require.Equal(t, 12.0, updated["price"])
	require.Equal(t, "mug", updated["name"])

	rec = env.do(t, http.MethodDelete, "/products/"+id, adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodGet, "/products/"+id, "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCartFlow(t *testing.T) {
	env := newTestEnv(t)
	token := env.signup(t, "user@example.com")

	rec := env.do(t, http.MethodGet, "/cart", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/cart", token, map[string]any{
		"product_id": "p1", "quantity": 2, "size": "M",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/cart", token, map[string]any{
		"product_id": "p1", "quantity": 1, "size": "M",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	cart := decode(t, rec)["cart"].(map[string]any)
	items := cart["items"].([]any)
	require.Len(t, items, 1)
	require.Equal(t, 3.0, items[0].(map[string]any)["quantity"])

	rec = env.do(t, http.MethodDelete, "/cart/p1?size=M", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cart = decode(t, rec)["cart"].(map[string]any)
	require.Empty(t, cart["items"])
}

func TestOrderOwnershipAndStatus(t *testing.T) {
	env := newTestEnv(t)
	aliceToken := env.signup(t, "alice@example.com")
	bobToken := env.signup(t, "bob@example.com")
	adminToken := env.signupAdmin(t, "admin@example.com")

	rec := env.do(t, http.MethodPost, "/orders", aliceToken, map[string]any{
		"items":   []map[string]any{{"product_id": "p1", "quantity": 2, "unit_price": 10}},
		"address": "1 Main St",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	ord := decode(t, rec)["order"].(map[string]any)
	orderID := ord["id"].(string)
	require.Equal(t, models.OrderStatusPending, ord["status"])
	require.Equal(t, 20.0, ord["total"])

	// owner and admin can read, another user cannot
	rec = env.do(t, http.MethodGet, "/orders/"+orderID, aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodGet, "/orders/"+orderID, adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodGet, "/orders/"+orderID, bobToken, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	// status updates are admin-only
	rec = env.do(t, http.MethodPut, "/orders/"+orderID, aliceToken, map[string]any{"status": "confirmed"})
	require.Equal(t, http.StatusForbidden, rec.Code)
	rec = env.do(t, http.MethodPut, "/orders/"+orderID, adminToken, map[string]any{"status": "confirmed"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodPut, "/orders/"+orderID, adminToken, map[string]any{"status": "delivered"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// the customer sees the status notification
	rec = env.do(t, http.MethodGet, "/notifications", aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode(t, rec)["notifications"].([]any)
	require.Len(t, list, 2)

	// admin list sees everything, user list only their own
	rec = env.do(t, http.MethodGet, "/orders", bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, decode(t, rec)["orders"])
	rec = env.do(t, http.MethodGet, "/orders", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode(t, rec)["orders"].([]any), 1)
}

func TestNotificationRoutes(t *testing.T) {
	env := newTestEnv(t)
	token := env.signup(t, "alice@example.com")

	rec := env.do(t, http.MethodPost, "/orders", token, map[string]any{
		"items": []map[string]any{{"product_id": "p1", "quantity": 1, "unit_price": 5}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodGet, "/notifications", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode(t, rec)["notifications"].([]any)
	require.Len(t, list, 1)
	id := list[0].(map[string]any)["id"].(string)

	rec = env.do(t, http.MethodPost, "/notifications/"+id+"/read", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, decode(t, rec)["notification"].(map[string]any)["read"])

	rec = env.do(t, http.MethodDelete, "/notifications/"+id, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodGet, "/notifications", token, nil)
	require.Empty(t, decode(t, rec)["notifications"])
}

func TestGalleryUpload(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.signupAdmin(t, "admin@example.com")
	userToken := env.signup(t, "user@example.com")

	image := base64.StdEncoding.EncodeToString([]byte("fake-png-bytes"))

	rec := env.do(t, http.MethodPost, "/gallery/upload", userToken, map[string]string{
		"title": "nope", "image": image,
	})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, "/gallery/upload", adminToken, map[string]string{
		"title":    "spring",
		"filename": "spring.png",
		"image":    "data:image/png;base64," + image,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decode(t, rec)
	item := resp["item"].(map[string]any)
	require.Equal(t, "spring", item["title"])
	imageURL := item["image_url"].(string)
	require.Contains(t, imageURL, "http://test/uploads/")
	require.Contains(t, imageURL, "spring.png")

	stored, err := os.ReadFile(filepath.Join(env.blobDir, item["object_path"].(string)))
	require.NoError(t, err)
	require.Equal(t, "fake-png-bytes", string(stored))

	// deleting the item also removes the object
	rec = env.do(t, http.MethodDelete, "/gallery/"+item["id"].(string), adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	_, err = os.Stat(filepath.Join(env.blobDir, item["object_path"].(string)))
	require.True(t, os.IsNotExist(err))
}

func TestGalleryUploadRejectsBadBase64(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.signupAdmin(t, "admin@example.com")

	rec := env.do(t, http.MethodPost, "/gallery/upload", adminToken, map[string]string{
		"title": "bad", "image": "not-base64!!!",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTestimonialRoutes(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.signupAdmin(t, "admin@example.com")

	rec := env.do(t, http.MethodPost, "/testimonials", adminToken, map[string]any{
		"author": "A", "text": "lovely", "rating": 5,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode(t, rec)["testimonial"].(map[string]any)["id"].(string)

	rec = env.do(t, http.MethodGet, "/testimonials", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode(t, rec)["testimonials"].([]any), 1)

	rec = env.do(t, http.MethodPut, "/testimonials/"+id, adminToken, map[string]any{"text": "superb"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "superb", decode(t, rec)["testimonial"].(map[string]any)["text"])

	rec = env.do(t, http.MethodDelete, "/testimonials/"+id, adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestWishlistRoutes(t *testing.T) {
	env := newTestEnv(t)
	token := env.signup(t, "user@example.com")

	rec := env.do(t, http.MethodPost, "/wishlist", token, map[string]string{"product_id": "p1"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodPost, "/wishlist", token, map[string]string{"product_id": "p1"})
	require.Equal(t, http.StatusOK, rec.Code)
	wl := decode(t, rec)["wishlist"].(map[string]any)
	require.Len(t, wl["items"].([]any), 1)

	rec = env.do(t, http.MethodDelete, "/wishlist/p1", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	wl = decode(t, rec)["wishlist"].(map[string]any)
	require.Empty(t, wl["items"])
}

func TestStatsAdminOnly(t *testing.T) {
	env := newTestEnv(t)
	userToken := env.signup(t, "user@example.com")
	adminToken := env.signupAdmin(t, "admin@example.com")

	rec := env.do(t, http.MethodPost, "/orders", userToken, map[string]any{
		"items": []map[string]any{{"product_id": "p1", "quantity": 2, "unit_price": 10}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodGet, "/stats", userToken, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, "/stats", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode(t, rec)["stats"].(map[string]any)
	require.Equal(t, 1.0, stats["total_orders"])
	require.Equal(t, 20.0, stats["total_revenue"])
	require.Equal(t, 2.0, stats["total_users"])
	require.Equal(t, 0.0, stats["total_products"])
	require.Equal(t, 1.0, stats["pending_orders"])
}

func TestPasswordResetFlow(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "alice@example.com")

	rec := env.do(t, http.MethodPost, "/auth/forgot-password", "", map[string]string{
		"email": "alice@example.com",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	token := decode(t, rec)["token"].(string)
	require.NotEmpty(t, token)

	rec = env.do(t, http.MethodPost, "/auth/verify-reset-token", "", map[string]string{"token": token})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "alice@example.com", decode(t, rec)["email"])

	rec = env.do(t, http.MethodPost, "/auth/reset-password", "", map[string]string{
		"token": token, "new_password": "fresh-pass", "confirm_password": "other",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/auth/reset-password", "", map[string]string{
		"token": token, "new_password": "fresh-pass", "confirm_password": "fresh-pass",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// the burned token cannot be replayed
	rec = env.do(t, http.MethodPost, "/auth/reset-password", "", map[string]string{
		"token": token, "new_password": "again", "confirm_password": "again",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "fresh-pass",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// unknown email still reports success, with no token issued
	rec = env.do(t, http.MethodPost, "/auth/forgot-password", "", map[string]string{
		"email": "nobody@example.com",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, decode(t, rec)["token"])
}
