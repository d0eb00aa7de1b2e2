package views

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"golang.org/x/sync/errgroup"

	"github.com/Astemirdum/equipment-lending/console/internal/api"
	"github.com/Astemirdum/equipment-lending/console/internal/model"
	"github.com/Astemirdum/equipment-lending/console/internal/session"
	"github.com/Astemirdum/equipment-lending/pkg/lifecycle"
)

// Catalog lists equipment. For admins it also holds the active requests so a
// delete can be refused without a round trip.
type Catalog struct {
	api    API
	sess   session.Session
	prompt Prompter
	out    io.Writer

	equipment []model.Equipment
	active    []model.BorrowRequest
}

func NewCatalog(client API, sess session.Session, prompt Prompter, out io.Writer) *Catalog {
	return &Catalog{
		api:    client,
		sess:   sess,
		prompt: prompt,
		out:    out,
	}
}

func (v *Catalog) admin() bool {
	return lifecycle.CanManageCatalog(v.sess.Role())
}

func (v *Catalog) Load(ctx context.Context) error {
	var (
		equipment       []model.Equipment
		pending, issued []model.BorrowRequest
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		equipment, err = v.api.ListEquipment(gctx)
		return err
	})
	if v.admin() {
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
	v.equipment = equipment
	v.active = append(pending, issued...)
	return nil
}

func (v *Catalog) Equipment() []model.Equipment {
	return v.equipment
}

func (v *Catalog) Create(ctx context.Context) error {
	if !v.admin() {
		return accessDenied()
	}
	in, err := v.askInput(model.Equipment{})
	if err != nil {
		return err
	}
	_, err = v.api.CreateEquipment(ctx, in)
	return settle(ctx, err, v.Load)
}

func (v *Catalog) Update(ctx context.Context, id int64) error {
	if !v.admin() {
		return accessDenied()
	}
	cur, ok := v.find(id)
	if !ok {
		return api.Validation(fmt.Sprintf("Equipment #%d is not in the catalog.", id))
	}
	in, err := v.askInput(cur)
	if err != nil {
		return err
	}
	stock := lifecycle.Stock{Total: cur.TotalQuantity, Available: cur.AvailableQuantity}
	if _, err := stock.Resize(in.TotalQuantity); err != nil {
		return api.Validation(fmt.Sprintf("Total quantity cannot go below the %d unit(s) currently issued.", stock.Issued()))
	}
	_, err = v.api.UpdateEquipment(ctx, id, in)
	return settle(ctx, err, v.Load)
}

// Delete refuses locally while a pending, approved or issued request still
// references the item; the server makes the same check.
func (v *Catalog) Delete(ctx context.Context, id int64) error {
	if !v.admin() {
		return accessDenied()
	}
	cur, ok := v.find(id)
	if !ok {
		return api.Validation(fmt.Sprintf("Equipment #%d is not in the catalog.", id))
	}
	var statuses []lifecycle.Status
	for _, r := range v.active {
		if r.EquipmentID == id {
			statuses = append(statuses, r.Status)
		}
	}
	if err := lifecycle.CheckDeletable(statuses); err != nil {
		return api.Validation(fmt.Sprintf("Cannot delete — %s is referenced by %d active request(s).", cur.Name, len(statuses)))
	}
	if !v.prompt.Confirm(fmt.Sprintf("Delete %s?", cur.Name)) {
		return ErrCancelled
	}
	err := v.api.DeleteEquipment(ctx, id)
	return settle(ctx, err, v.Load)
}

func (v *Catalog) find(id int64) (model.Equipment, bool) {
	for _, e := range v.equipment {
		if e.ID == id {
			return e, true
		}
	}
	return model.Equipment{}, false
}

func (v *Catalog) askInput(cur model.Equipment) (model.EquipmentInput, error) {
	total := ""
	if cur.ID != 0 {
		total = strconv.Itoa(cur.TotalQuantity)
	}
	answers := make([]string, 0, 5)
	for _, q := range [][2]string{
		{"Name", cur.Name},
		{"Category", cur.Category},
		{"Condition", cur.ConditionDescription},
		{"Description", cur.Description},
		{"Total quantity", total},
	} {
		a, ok := v.prompt.Prompt(q[0], q[1])
		if !ok {
			return model.EquipmentInput{}, ErrCancelled
		}
		answers = append(answers, strings.TrimSpace(a))
	}
	return validateInput(answers[0], answers[1], answers[2], answers[3], answers[4])
}

func validateInput(name, category, condition, description, total string) (model.EquipmentInput, error) {
	if name == "" {
		return model.EquipmentInput{}, api.Validation("Name is required.")
	}
	n, err := strconv.Atoi(total)
	if err != nil || n < 0 {
		return model.EquipmentInput{}, api.Validation("Total quantity must be a whole number of at least 0.")
	}
	return model.EquipmentInput{
		Name:                 name,
		Category:             category,
		ConditionDescription: condition,
		Description:          description,
		TotalQuantity:        n,
	}, nil
}

func (v *Catalog) Render() {
	tw := tabwriter.NewWriter(v.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tCONDITION\tAVAILABLE")
	for _, e := range v.equipment {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d/%d\n", e.ID, e.Name, e.Category, e.ConditionDescription, e.AvailableQuantity, e.TotalQuantity)
	}
	_ = tw.Flush()
}
