package views

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Astemirdum/equipment-lending/console/internal/api"
	"github.com/Astemirdum/equipment-lending/console/internal/model"
	"github.com/Astemirdum/equipment-lending/console/internal/session"
	"github.com/Astemirdum/equipment-lending/pkg/lifecycle"
)

// Requests is the borrow-request lifecycle view. Students see their own
// requests, staff additionally the approval and issue queues, admins only the
// queues.
type Requests struct {
	api    API
	sess   session.Session
	prompt Prompter
	out    io.Writer
	names  *UserNames
	now    func() time.Time

	equipment []model.Equipment
	mine      []model.BorrowRequest
	pending   []model.BorrowRequest
	issued    []model.BorrowRequest
}

func NewRequests(client API, sess session.Session, prompt Prompter, out io.Writer, names *UserNames) *Requests {
	return &Requests{
		api:    client,
		sess:   sess,
		prompt: prompt,
		out:    out,
		names:  names,
		now:    time.Now,
	}
}

func (v *Requests) borrower() bool {
	return lifecycle.Allowed(v.sess.Role(), lifecycle.ActionCreate)
}

func (v *Requests) reviewer() bool {
	return lifecycle.Allowed(v.sess.Role(), lifecycle.ActionApprove)
}

// Load fetches the working set in parallel. On failure the previous lists are kept.
func (v *Requests) Load(ctx context.Context) error {
	var (
		equipment             []model.Equipment
		mine, pending, issued []model.BorrowRequest
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		equipment, err = v.api.ListEquipment(gctx)
		return err
	})
	if v.borrower() {
		g.Go(func() (err error) {
			mine, err = v.api.ListMine(gctx)
			return err
		})
	}
	if v.reviewer() {
		g.Go(func() (err error) {
			pending, err = v.api.ListPending(gctx)
			return err
		})
		g.Go(func() (err error) {
			issued, err = v.api.ListIssued(gctx)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	v.equipment, v.mine, v.pending, v.issued = equipment, mine, pending, issued
	return nil
}

func (v *Requests) Mine() []model.BorrowRequest    { return v.mine }
func (v *Requests) Pending() []model.BorrowRequest { return v.pending }
func (v *Requests) Issued() []model.BorrowRequest  { return v.issued }

func (v *Requests) Create(ctx context.Context) error {
	if !v.borrower() {
		return accessDenied()
	}
	today := v.now().Format(dateLayout)
	answers := make([]string, 0, 4)
	for _, q := range [][2]string{
		{"Equipment id", ""},
		{"Quantity", "1"},
		{"Start date (YYYY-MM-DD)", today},
		{"End date (YYYY-MM-DD)", today},
	} {
		a, ok := v.prompt.Prompt(q[0], q[1])
		if !ok {
			return ErrCancelled
		}
		answers = append(answers, a)
	}

	in, err := parseDraft(answers[0], answers[1], answers[2], answers[3])
	if err != nil {
		return err
	}
	if _, ok := v.findEquipment(in.EquipmentID); !ok {
		return api.Validation(fmt.Sprintf("Unknown equipment #%d.", in.EquipmentID))
	}
	_, err = v.api.CreateBorrowRequest(ctx, in)
	return settle(ctx, err, v.Load)
}

func parseDraft(equipmentID, qty, start, end string) (model.CreateBorrowRequest, error) {
	var in model.CreateBorrowRequest
	id, err := strconv.ParseInt(equipmentID, 10, 64)
	if err != nil {
		return in, api.Validation("Equipment id must be a number.")
	}
	n, err := strconv.Atoi(qty)
	if err != nil {
		return in, api.Validation("Quantity must be a number.")
	}
	from, err := time.Parse(dateLayout, start)
	if err != nil {
		return in, api.Validation("Start date must look like 2024-01-31.")
	}
	to, err := time.Parse(dateLayout, end)
	if err != nil {
		return in, api.Validation("End date must look like 2024-01-31.")
	}
	if err := lifecycle.ValidateDraft(id, n, from, to); err != nil {
		return in, api.Validation(err.Error())
	}
	return model.CreateBorrowRequest{EquipmentID: id, Quantity: n, StartDate: from, EndDate: to}, nil
}

func (v *Requests) Approve(ctx context.Context, id int64) error {
	req, err := v.actionable(id, lifecycle.ActionApprove)
	if err != nil {
		return err
	}
	if avail, known := v.available(req); known && avail <= 0 {
		return api.Validation("Equipment is not available at the moment.")
	}
	comment, ok := v.prompt.Prompt("Comment (optional)", "")
	if !ok {
		return ErrCancelled
	}
	_, err = v.api.Approve(ctx, id, strings.TrimSpace(comment))
	return settle(ctx, err, v.Load)
}

func (v *Requests) Reject(ctx context.Context, id int64) error {
	if _, err := v.actionable(id, lifecycle.ActionReject); err != nil {
		return err
	}
	comment, ok := v.prompt.Prompt("Reason for rejection", "")
	if !ok {
		return ErrCancelled
	}
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return api.Validation("A comment is required to reject a request.")
	}
	_, err := v.api.Reject(ctx, id, comment)
	return settle(ctx, err, v.Load)
}

func (v *Requests) Issue(ctx context.Context, id int64) error {
	req, err := v.actionable(id, lifecycle.ActionIssue)
	if err != nil {
		return err
	}
	if !v.prompt.Confirm(fmt.Sprintf("Issue %d x %s?", req.QuantityRequested, v.equipmentName(req))) {
		return ErrCancelled
	}
	_, err = v.api.Issue(ctx, id)
	return settle(ctx, err, v.Load)
}

func (v *Requests) Return(ctx context.Context, id int64) error {
	req, err := v.actionable(id, lifecycle.ActionReturn)
	if err != nil {
		return err
	}
	if !v.prompt.Confirm(fmt.Sprintf("Mark %d x %s as returned?", req.QuantityRequested, v.equipmentName(req))) {
		return ErrCancelled
	}
	_, err = v.api.Return(ctx, id)
	return settle(ctx, err, v.Load)
}

// actionable applies the rendering guard before anything is sent.
func (v *Requests) actionable(id int64, action lifecycle.Action) (model.BorrowRequest, error) {
	if !lifecycle.Allowed(v.sess.Role(), action) {
		return model.BorrowRequest{}, accessDenied()
	}
	req, ok := v.find(id)
	if !ok {
		return model.BorrowRequest{}, api.Validation(fmt.Sprintf("Request #%d is not in the current view.", id))
	}
	if !lifecycle.Enabled(req.Status, action) {
		return req, api.Validation(fmt.Sprintf("Cannot %s a %s request.", action, req.Status))
	}
	return req, nil
}

func (v *Requests) find(id int64) (model.BorrowRequest, bool) {
	for _, list := range [][]model.BorrowRequest{v.pending, v.issued, v.mine} {
		for _, r := range list {
			if r.ID == id {
				return r, true
			}
		}
	}
	return model.BorrowRequest{}, false
}

func (v *Requests) findEquipment(id int64) (model.Equipment, bool) {
	for _, e := range v.equipment {
		if e.ID == id {
			return e, true
		}
	}
	return model.Equipment{}, false
}

// available prefers the snapshot embedded in the request.
func (v *Requests) available(req model.BorrowRequest) (int, bool) {
	if req.Equipment != nil {
		return req.Equipment.AvailableQuantity, true
	}
	if e, ok := v.findEquipment(req.EquipmentID); ok {
		return e.AvailableQuantity, true
	}
	return 0, false
}

func (v *Requests) equipmentName(req model.BorrowRequest) string {
	if req.Equipment != nil && req.Equipment.Name != "" {
		return req.Equipment.Name
	}
	if e, ok := v.findEquipment(req.EquipmentID); ok {
		return e.Name
	}
	return fmt.Sprintf("equipment #%d", req.EquipmentID)
}

func actions(status lifecycle.Status) string {
	var enabled []string
	for _, a := range []lifecycle.Action{lifecycle.ActionApprove, lifecycle.ActionReject, lifecycle.ActionIssue, lifecycle.ActionReturn} {
		if lifecycle.Enabled(status, a) {
			enabled = append(enabled, string(a))
		}
	}
	if len(enabled) == 0 {
		return "-"
	}
	return strings.Join(enabled, " ")
}

func (v *Requests) Render(ctx context.Context) {
	if v.borrower() {
		fmt.Fprintln(v.out, "My requests")
		tw := tabwriter.NewWriter(v.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tEQUIPMENT\tQTY\tFROM\tTO\tSTATUS\tCOMMENT")
		for _, r := range v.mine {
			fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\t%s\t%s\n", r.ID, v.equipmentName(r), r.QuantityRequested,
				r.StartDate.Format(dateLayout), r.EndDate.Format(dateLayout), r.Status, r.AdminComment)
		}
		_ = tw.Flush()
	}
	if !v.reviewer() {
		return
	}
	fmt.Fprintln(v.out, "Awaiting approval or issue")
	tw := tabwriter.NewWriter(v.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tBORROWER\tEQUIPMENT\tQTY\tAVAILABLE\tFROM\tTO\tSTATUS\tACTIONS")
	for _, r := range v.pending {
		avail := "?"
		if n, ok := v.available(r); ok {
			avail = strconv.Itoa(n)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\t%s\t%s\t%s\n", r.ID, v.names.Name(ctx, r.UserID), v.equipmentName(r),
			r.QuantityRequested, avail, r.StartDate.Format(dateLayout), r.EndDate.Format(dateLayout), r.Status, actions(r.Status))
	}
	_ = tw.Flush()

	fmt.Fprintln(v.out, "Issued")
	tw = tabwriter.NewWriter(v.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tBORROWER\tEQUIPMENT\tQTY\tDUE\tOVERDUE\tACTIONS")
	for _, r := range v.issued {
		overdue := ""
		if r.Overdue {
			overdue = "yes"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\t%s\n", r.ID, v.names.Name(ctx, r.UserID), v.equipmentName(r),
			r.QuantityRequested, r.EndDate.Format(dateLayout), overdue, actions(r.Status))
	}
	_ = tw.Flush()
}
