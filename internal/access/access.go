package access

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/dmehra2102/restaurant-pos/pkg/apperr"
)

type Permission string

const (
	MenuRead       Permission = "menu:read"
	MenuWrite      Permission = "menu:write"
	OrdersRead     Permission = "orders:read"
	OrdersWrite    Permission = "orders:write"
	OrdersVoid     Permission = "orders:void"
	PaymentsRead   Permission = "payments:read"
	PaymentsWrite  Permission = "payments:write"
	PaymentsRefund Permission = "payments:refund"
	TablesRead     Permission = "tables:read"
	TablesWrite    Permission = "tables:write"
	TablesLayout   Permission = "tables:layout"
	ReportsRead    Permission = "reports:read"
	ReportsExport  Permission = "reports:export"
	UsersRead      Permission = "users:read"
	UsersWrite     Permission = "users:write"
	SettingsRead   Permission = "settings:read"
	SettingsWrite  Permission = "settings:write"
	AuditRead      Permission = "audit:read"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleServer  Role = "server"
	RoleCashier Role = "cashier"
	RoleHost    Role = "host"
)

var rolePermissions = map[Role][]Permission{
	RoleAdmin: {
		MenuRead, MenuWrite,
		OrdersRead, OrdersWrite, OrdersVoid,
		PaymentsRead, PaymentsWrite, PaymentsRefund,
		TablesRead, TablesWrite, TablesLayout,
		ReportsRead, ReportsExport,
		UsersRead, UsersWrite,
		SettingsRead, SettingsWrite,
		AuditRead,
	},
	RoleManager: {
		MenuRead, MenuWrite,
		OrdersRead, OrdersWrite, OrdersVoid,
		PaymentsRead, PaymentsWrite, PaymentsRefund,
		TablesRead, TablesWrite, TablesLayout,
		ReportsRead, ReportsExport,
		UsersRead,
		SettingsRead,
		AuditRead,
	},
	RoleServer:  {MenuRead, OrdersRead, OrdersWrite, TablesRead, TablesWrite},
	RoleCashier: {MenuRead, OrdersRead, OrdersWrite, PaymentsRead, PaymentsWrite, TablesRead},
	RoleHost:    {MenuRead, OrdersRead, TablesRead, TablesWrite},
}

// Permissions lists what a role may do. Unknown roles get nothing.
func (r Role) Permissions() []Permission {
	return slices.Clone(rolePermissions[r])
}

func (r Role) Allows(p Permission) bool {
	return slices.Contains(rolePermissions[r], p)
}

type User struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Role     Role   `json:"role"`
	IsActive bool   `json:"is_active"`
}

type Directory interface {
	User(ctx context.Context, id string) (User, error)
}

// Gate answers permission questions for the HTTP layer. It fails closed:
// lookup errors deny.
type Gate struct {
	log *slog.Logger
	dir Directory
}

func NewGate(log *slog.Logger, dir Directory) *Gate {
	return &Gate{log: log, dir: dir}
}

func (g *Gate) Check(ctx context.Context, actorID string, p Permission) bool {
	if actorID == "" {
		return false
	}
	u, err := g.dir.User(ctx, actorID)
	if err != nil {
		g.log.Warn("permission lookup failed", "actor_id", actorID, "permission", p, "err", err)
		return false
	}
	return u.IsActive && u.Role.Allows(p)
}

// StaticDirectory is an in-memory user list for tests and local runs.
type StaticDirectory struct {
	mu    sync.RWMutex
	users map[string]User
}

func NewStaticDirectory(users ...User) *StaticDirectory {
	d := &StaticDirectory{users: make(map[string]User, len(users))}
	for _, u := range users {
		d.users[u.ID] = u
	}
	return d
}

func (d *StaticDirectory) User(_ context.Context, id string) (User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[id]
	if !ok {
		return User{}, fmt.Errorf("%w: user %s", apperr.ErrNotFound, id)
	}
	return u, nil
}
