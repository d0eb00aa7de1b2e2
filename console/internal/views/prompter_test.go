package views_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Astemirdum/equipment-lending/console/internal/model"
	"github.com/Astemirdum/equipment-lending/console/internal/views"
	"github.com/Astemirdum/equipment-lending/pkg/auth"
	"github.com/Astemirdum/equipment-lending/pkg/lifecycle"
)

func TestTerminal(t *testing.T) {
	t.Parallel()
	out := &bytes.Buffer{}
	term := views.NewTerminal(strings.NewReader("Camera\n\n.\nyes\nn\n"), out)

	a, ok := term.Prompt("Name", "")
	require.True(t, ok)
	require.Equal(t, "Camera", a)

	a, ok = term.Prompt("Quantity", "1")
	require.True(t, ok)
	require.Equal(t, "1", a)

	_, ok = term.Prompt("Comment", "")
	require.False(t, ok)

	require.True(t, term.Confirm("Issue?"))
	require.False(t, term.Confirm("Issue?"))
	// input exhausted
	require.False(t, term.Confirm("Issue?"))
	_, ok = term.Prompt("Name", "x")
	require.False(t, ok)

	require.Contains(t, out.String(), "Quantity [1]: ")
	require.Contains(t, out.String(), "Issue? (y/N): ")
}

func TestUserNames(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFakeAPI(lifecycle.RoleStaff, 2)
	f.users[5] = model.User{ID: 5, Name: "Beth"}
	names := views.NewUserNames(f, auth.Profile{UserID: 2, Name: "Stan"}, time.Minute, zap.NewNop())

	require.Equal(t, "Stan", names.Name(ctx, 2))
	require.Equal(t, "Beth", names.Name(ctx, 5))
	require.Equal(t, "Beth", names.Name(ctx, 5))
	require.Equal(t, 1, f.count("GetUser"))

	require.Equal(t, "#6", names.Name(ctx, 6))
	require.Equal(t, "#6", names.Name(ctx, 6))
	require.Equal(t, 3, f.count("GetUser"))

	names.Prime([]model.User{{ID: 6, Name: "Cleo"}})
	require.Equal(t, "Cleo", names.Name(ctx, 6))
	require.Equal(t, 3, f.count("GetUser"))
}
