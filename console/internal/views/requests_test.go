package views_test

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Astemirdum/equipment-lending/console/internal/api"
	"github.com/Astemirdum/equipment-lending/console/internal/model"
	"github.com/Astemirdum/equipment-lending/console/internal/session"
	"github.com/Astemirdum/equipment-lending/console/internal/views"
	"github.com/Astemirdum/equipment-lending/pkg/auth"
	"github.com/Astemirdum/equipment-lending/pkg/lifecycle"
)

func newSession(id int64, name string, role lifecycle.Role) session.Session {
	return session.Session{Token: "tok", Profile: auth.Profile{UserID: id, Name: name, Role: role}}
}

func newRequests(f *fakeAPI, sess session.Session, p views.Prompter, out *bytes.Buffer) *views.Requests {
	names := views.NewUserNames(f, sess.Profile, time.Minute, zap.NewNop())
	return views.NewRequests(f, sess, p, out, names)
}

func statusOf(list []model.BorrowRequest, id int64) (lifecycle.Status, bool) {
	for _, r := range list {
		if r.ID == id {
			return r.Status, true
		}
	}
	return "", false
}

func TestRequests_LendingScenario(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFakeAPI(lifecycle.RoleStudent, 1)
	camera := f.addEquipment("Camera", 2, 2)

	student := newRequests(f, newSession(1, "Sam", lifecycle.RoleStudent),
		&script{answers: []string{itoa(camera), "2", "2024-01-01", "2024-01-05"}}, &bytes.Buffer{})
	require.NoError(t, student.Load(ctx))
	require.NoError(t, student.Create(ctx))
	require.Len(t, student.Mine(), 1)
	first := student.Mine()[0].ID
	require.Equal(t, lifecycle.StatusPending, student.Mine()[0].Status)
	require.Empty(t, student.Pending())

	second := f.addRequest(3, camera, 1, lifecycle.StatusPending)

	f.as(lifecycle.RoleStaff, 2)
	prompt := &script{answers: []string{"", "ok"}, confirms: []bool{true, true, true}}
	staff := newRequests(f, newSession(2, "Stan", lifecycle.RoleStaff), prompt, &bytes.Buffer{})
	require.NoError(t, staff.Load(ctx))
	require.Len(t, staff.Pending(), 2)

	require.NoError(t, staff.Approve(ctx, first))
	require.NoError(t, staff.Approve(ctx, second))
	require.Equal(t, lifecycle.Stock{Total: 2, Available: 2}, f.stock(camera))

	require.NoError(t, staff.Issue(ctx, first))
	require.Equal(t, lifecycle.Stock{Total: 2, Available: 0}, f.stock(camera))
	st, ok := statusOf(staff.Issued(), first)
	require.True(t, ok)
	require.Equal(t, lifecycle.StatusIssued, st)

	err := staff.Issue(ctx, second)
	require.True(t, api.IsKind(err, api.KindConflict), "got %v", err)
	require.Equal(t, lifecycle.StatusApproved, f.status(second))
	require.Equal(t, lifecycle.Stock{Total: 2, Available: 0}, f.stock(camera))

	require.NoError(t, staff.Return(ctx, first))
	require.Equal(t, lifecycle.Stock{Total: 2, Available: 2}, f.stock(camera))
	require.Equal(t, lifecycle.StatusReturned, f.status(first))
	_, ok = statusOf(staff.Issued(), first)
	require.False(t, ok)

	f.as(lifecycle.RoleStudent, 1)
	require.NoError(t, student.Load(ctx))
	require.Equal(t, lifecycle.StatusReturned, student.Mine()[0].Status)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func TestRequests_Guards(t *testing.T) {
	t.Parallel()
	type action func(v *views.Requests, ctx context.Context, id int64) error
	approve := func(v *views.Requests, ctx context.Context, id int64) error { return v.Approve(ctx, id) }
	reject := func(v *views.Requests, ctx context.Context, id int64) error { return v.Reject(ctx, id) }
	issue := func(v *views.Requests, ctx context.Context, id int64) error { return v.Issue(ctx, id) }
	ret := func(v *views.Requests, ctx context.Context, id int64) error { return v.Return(ctx, id) }

	tests := []struct {
		name      string
		role      lifecycle.Role
		available int
		status    lifecycle.Status
		prompt    *script
		action    action
		method    string
		unknownID bool
		wantKind  api.Kind
		wantErr   error
	}{
		{name: "approve without stock", role: lifecycle.RoleStaff, available: 0, status: lifecycle.StatusPending,
			prompt: &script{answers: []string{"fine"}}, action: approve, method: "Approve", wantKind: api.KindValidation},
		{name: "approve cancelled", role: lifecycle.RoleStaff, available: 1, status: lifecycle.StatusPending,
			prompt: &script{}, action: approve, method: "Approve", wantErr: views.ErrCancelled},
		{name: "approve twice", role: lifecycle.RoleAdmin, available: 1, status: lifecycle.StatusApproved,
			prompt: &script{answers: []string{"x"}}, action: approve, method: "Approve", wantKind: api.KindValidation},
		{name: "student approve", role: lifecycle.RoleStudent, available: 1, status: lifecycle.StatusPending,
			prompt: &script{answers: []string{"x"}}, action: approve, method: "Approve", wantKind: api.KindAuthorization},
		{name: "reject blank comment", role: lifecycle.RoleStaff, available: 1, status: lifecycle.StatusPending,
			prompt: &script{answers: []string{"  \t"}}, action: reject, method: "Reject", wantKind: api.KindValidation},
		{name: "reject cancelled", role: lifecycle.RoleStaff, available: 1, status: lifecycle.StatusPending,
			prompt: &script{}, action: reject, method: "Reject", wantErr: views.ErrCancelled},
		{name: "reject approved", role: lifecycle.RoleStaff, available: 1, status: lifecycle.StatusApproved,
			prompt: &script{answers: []string{"late"}}, action: reject, method: "Reject", wantKind: api.KindValidation},
		{name: "issue not confirmed", role: lifecycle.RoleStaff, available: 1, status: lifecycle.StatusApproved,
			prompt: &script{confirms: []bool{false}}, action: issue, method: "Issue", wantErr: views.ErrCancelled},
		{name: "issue pending", role: lifecycle.RoleStaff, available: 1, status: lifecycle.StatusPending,
			prompt: &script{confirms: []bool{true}}, action: issue, method: "Issue", wantKind: api.KindValidation},
		{name: "return not confirmed", role: lifecycle.RoleAdmin, available: 0, status: lifecycle.StatusIssued,
			prompt: &script{confirms: []bool{false}}, action: ret, method: "Return", wantErr: views.ErrCancelled},
		{name: "unknown request", role: lifecycle.RoleStaff, available: 1, status: lifecycle.StatusPending, unknownID: true,
			prompt: &script{answers: []string{"x"}}, action: approve, method: "Approve", wantKind: api.KindValidation},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			f := newFakeAPI(tt.role, 2)
			eq := f.addEquipment("Tripod", 1, tt.available)
			id := f.addRequest(5, eq, 1, tt.status)
			if tt.unknownID {
				id = 9999
			}

			v := newRequests(f, newSession(2, "Stan", tt.role), tt.prompt, &bytes.Buffer{})
			require.NoError(t, v.Load(ctx))
			pending, issued := v.Pending(), v.Issued()
			loads := f.count("ListEquipment")

			err := tt.action(v, ctx, id)
			require.Error(t, err)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.Equal(t, tt.wantKind, api.KindOf(err), err.Error())
			}
			require.Zero(t, f.count(tt.method))
			require.Equal(t, loads, f.count("ListEquipment"))
			require.Equal(t, pending, v.Pending())
			require.Equal(t, issued, v.Issued())
		})
	}
}

func TestRequests_FailedMutationKeepsLists(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFakeAPI(lifecycle.RoleStaff, 2)
	eq := f.addEquipment("Mic", 3, 3)
	id := f.addRequest(5, eq, 1, lifecycle.StatusApproved)

	v := newRequests(f, newSession(2, "Stan", lifecycle.RoleStaff), &script{confirms: []bool{true}}, &bytes.Buffer{})
	require.NoError(t, v.Load(ctx))
	before := v.Pending()

	f.failNext("Issue", &api.Error{Kind: api.KindTransient, Status: http.StatusBadGateway, Message: api.MsgServerUnavailable})
	err := v.Issue(ctx, id)
	require.True(t, api.IsKind(err, api.KindTransient))
	require.Equal(t, api.MsgServerUnavailable, err.Error())
	require.Equal(t, 1, f.count("Issue"))
	require.Equal(t, 1, f.count("ListPending"))
	require.Equal(t, before, v.Pending())
	require.Equal(t, lifecycle.Stock{Total: 3, Available: 3}, f.stock(eq))
}

func TestRequests_ConflictRefreshes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFakeAPI(lifecycle.RoleStaff, 2)
	eq := f.addEquipment("Mic", 3, 3)
	id := f.addRequest(5, eq, 1, lifecycle.StatusPending)

	v := newRequests(f, newSession(2, "Stan", lifecycle.RoleStaff), &script{answers: []string{""}}, &bytes.Buffer{})
	require.NoError(t, v.Load(ctx))
	_, ok := statusOf(v.Pending(), id)
	require.True(t, ok)

	// another reviewer got there first
	f.setStatus(id, lifecycle.StatusRejected)

	err := v.Approve(ctx, id)
	require.True(t, api.IsKind(err, api.KindConflict), "got %v", err)
	require.Equal(t, 1, f.count("Approve"))
	require.Equal(t, 2, f.count("ListPending"))
	_, ok = statusOf(v.Pending(), id)
	require.False(t, ok)
}

func TestRequests_CreateValidation(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		answers func(eq int64) []string
		wantErr error
	}{
		{name: "zero quantity", answers: func(eq int64) []string { return []string{itoa(eq), "0", "2024-01-01", "2024-01-02"} }},
		{name: "start after end", answers: func(eq int64) []string { return []string{itoa(eq), "1", "2024-01-03", "2024-01-02"} }},
		{name: "bad date", answers: func(eq int64) []string { return []string{itoa(eq), "1", "tomorrow", "2024-01-02"} }},
		{name: "unknown equipment", answers: func(int64) []string { return []string{"999", "1", "2024-01-01", "2024-01-02"} }},
		{name: "id not a number", answers: func(int64) []string { return []string{"camera", "1", "2024-01-01", "2024-01-02"} }},
		{name: "cancelled", answers: func(eq int64) []string { return []string{itoa(eq), "1"} }, wantErr: views.ErrCancelled},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			f := newFakeAPI(lifecycle.RoleStudent, 1)
			eq := f.addEquipment("Laptop", 1, 1)
			v := newRequests(f, newSession(1, "Sam", lifecycle.RoleStudent), &script{answers: tt.answers(eq)}, &bytes.Buffer{})
			require.NoError(t, v.Load(ctx))

			err := v.Create(ctx)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.Equal(t, api.KindValidation, api.KindOf(err), err.Error())
			}
			require.Zero(t, f.count("CreateBorrowRequest"))
			require.Empty(t, v.Mine())
		})
	}
}

func TestRequests_AdminCannotCreate(t *testing.T) {
	t.Parallel()
	f := newFakeAPI(lifecycle.RoleAdmin, 9)
	v := newRequests(f, newSession(9, "Ada", lifecycle.RoleAdmin), &script{}, &bytes.Buffer{})
	require.NoError(t, v.Load(context.Background()))
	require.Zero(t, f.count("ListMine"))

	err := v.Create(context.Background())
	require.Equal(t, api.KindAuthorization, api.KindOf(err))
	require.Equal(t, api.MsgAccessDenied, err.Error())
}

func TestRequests_Render(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFakeAPI(lifecycle.RoleStaff, 2)
	f.users[5] = model.User{ID: 5, Name: "Beth"}
	eq := f.addEquipment("Projector", 2, 1)
	f.addRequest(5, eq, 1, lifecycle.StatusPending)
	f.addRequest(5, eq, 1, lifecycle.StatusApproved)
	f.addRequest(5, eq, 1, lifecycle.StatusIssued)

	out := &bytes.Buffer{}
	v := newRequests(f, newSession(2, "Stan", lifecycle.RoleStaff), &script{}, out)
	require.NoError(t, v.Load(ctx))
	v.Render(ctx)
	v.Render(ctx)

	s := out.String()
	require.Contains(t, s, "My requests")
	require.Contains(t, s, "Awaiting approval or issue")
	require.Contains(t, s, "approve reject")
	require.Contains(t, s, "Beth")
	require.Contains(t, s, "return")
	require.Equal(t, 1, f.count("GetUser"))
}
