package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"

	"github.com/jafarshop/groceryadmin/internal/apiclient"
	"github.com/jafarshop/groceryadmin/internal/app"
	"github.com/jafarshop/groceryadmin/internal/cache"
	"github.com/jafarshop/groceryadmin/internal/domain"
	"github.com/jafarshop/groceryadmin/internal/screens"
	"github.com/jafarshop/groceryadmin/internal/service"
)

var errUsage = errors.New("invalid arguments")

func newFlags(name string) *pflag.FlagSet {
	return pflag.NewFlagSet(name, pflag.ContinueOnError)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// watch re-renders whenever the observed query picks up new data, until the
// context is cancelled.
func watch(ctx context.Context, state func() cache.QueryState, render func()) {
	render()
	last := state().UpdatedAt

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if st := state(); !st.UpdatedAt.Equal(last) {
				last = st.UpdatedAt
				render()
			}
		}
	}
}

func stateErr(st cache.QueryState) error {
	if st.Status == cache.StatusError {
		return st.Err
	}
	return nil
}

func runLogin(ctx context.Context, a *app.App, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	sess, err := a.Services.Auth.Login(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Printf("Signed in as %s\n", sess.Role)
	return nil
}

func runLogout(ctx context.Context, a *app.App, args []string) error {
	if err := a.Services.Auth.Logout(ctx); err != nil {
		return err
	}
	fmt.Println("Signed out")
	return nil
}

func runWhoami(ctx context.Context, a *app.App, args []string) error {
	if !a.Sessions.SignedIn() {
		fmt.Println("Not signed in")
		return nil
	}
	fmt.Printf("Signed in as %s\n", a.Sessions.Role())
	return nil
}

func runInventory(ctx context.Context, a *app.App, args []string) error {
	fs := newFlags("inventory")
	search := fs.String("search", "", "name or category contains")
	category := fs.String("category", "", "exact category")
	price := fs.String("price", "", `price bracket, e.g. "Under $5"`)
	stock := fs.String("stock", "", "IN, LOW or OUT")
	page := fs.Int("page", 0, "page index")
	if err := fs.Parse(args); err != nil {
		return err
	}

	inv := screens.NewInventory(ctx, a.Cache, a.Services.Products, a.Screens.Inventory)
	defer inv.Close()

	inv.SetSearch(*search)
	inv.SetCategory(*category)
	inv.SetPriceRange(*price)
	inv.SetStockStatus(domain.StockStatus(*stock))
	inv.SetPage(*page)

	v := inv.View()
	if err := stateErr(v.State); err != nil {
		return err
	}
	printInventory(os.Stdout, v)
	return nil
}

func runProduct(ctx context.Context, a *app.App, args []string) error {
	if len(args) < 1 {
		return errUsage
	}
	products := a.Services.Products
	sub, args := args[0], args[1:]

	switch sub {
	case "add", "edit":
		fs := newFlags("product " + sub)
		name := fs.String("name", "", "product name")
		category := fs.String("category", "", "category")
		unit := fs.String("unit", "", `unit, e.g. "500 g"`)
		price := fs.String("price", "", "unit price")
		stock := fs.Int("stock", -1, "units in stock")
		description := fs.String("description", "", "description")
		image := fs.String("image", "", "image file, add only")
		if err := fs.Parse(args); err != nil {
			return err
		}

		if sub == "edit" {
			if fs.NArg() != 1 {
				return errUsage
			}
			id, err := parseID(fs.Arg(0))
			if err != nil {
				return err
			}
			current, err := products.Get(ctx, id)
			if err != nil {
				return err
			}
			b := service.NewPatchBuilder(*current)
			if fs.Changed("name") {
				b.Name(*name)
			}
			if fs.Changed("category") {
				b.Category(*category)
			}
			if fs.Changed("unit") {
				b.Unit(*unit)
			}
			if fs.Changed("description") {
				b.Description(*description)
			}
			if fs.Changed("price") {
				p, err := decimal.NewFromString(*price)
				if err != nil {
					return fmt.Errorf("invalid price %q", *price)
				}
				b.Price(p)
			}
			if fs.Changed("stock") {
				b.Stock(*stock)
			}
			patch := b.Build()
			if patch.IsEmpty() {
				fmt.Println("Nothing changed")
				return nil
			}
			if err := products.Update(ctx, id, patch); err != nil {
				return err
			}
			fmt.Printf("Updated %v\n", patch.Fields())
			return nil
		}

		in := service.ProductInput{Name: *name, Category: *category, Unit: *unit, Stock: *stock, Description: *description}
		if *price != "" {
			p, err := decimal.NewFromString(*price)
			if err != nil {
				return fmt.Errorf("invalid price %q", *price)
			}
			in.Price = p
		}
		if in.Stock < 0 {
			in.Stock = 0
		}

		var file *apiclient.FormFile
		if *image != "" {
			f, err := readFormFile("image", *image)
			if err != nil {
				return err
			}
			file = &f
		}
		res, err := products.CreateWithImage(ctx, in, file)
		if err != nil {
			return err
		}
		fmt.Printf("Created product %d\n", res.Product.ID)
		if res.ImageErr != nil {
			fmt.Printf("Image upload failed: %s\n", apiclient.MessageOf(res.ImageErr, "upload error"))
		}
		return nil

	case "image":
		if len(args) != 2 {
			return errUsage
		}
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		f, err := readFormFile("image", args[1])
		if err != nil {
			return err
		}
		return products.UploadImage(ctx, id, f)

	case "enable", "disable", "delete":
		if len(args) != 1 {
			return errUsage
		}
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		if sub == "delete" {
			return products.Delete(ctx, id)
		}
		return products.SetActive(ctx, id, sub == "enable")

	case "csv":
		if len(args) != 1 {
			return errUsage
		}
		f, err := readFormFile("file", args[0])
		if err != nil {
			return err
		}
		res, err := products.UploadCSV(ctx, f)
		if err != nil {
			return err
		}
		fmt.Printf("Created %d, failed %d\n", res.Created, res.Failed)
		for _, e := range res.Errors {
			fmt.Printf("  %s\n", e)
		}
		return nil
	}
	return errUsage
}

func readFormFile(field, path string) (apiclient.FormFile, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return apiclient.FormFile{}, err
	}
	return apiclient.FormFile{Field: field, Filename: filepath.Base(path), Content: bytes.NewReader(content)}, nil
}

func runOrders(ctx context.Context, a *app.App, args []string) error {
	fs := newFlags("orders")
	status := fs.String("status", "", "order status")
	phone := fs.String("phone", "", "customer phone")
	from := fs.String("from", "", "from date, YYYY-MM-DD")
	to := fs.String("to", "", "to date, YYYY-MM-DD")
	page := fs.Int("page", 0, "page index")
	live := fs.Bool("watch", false, "keep polling")
	if err := fs.Parse(args); err != nil {
		return err
	}

	s := screens.NewOrders(ctx, a.Cache, a.Services.Orders, a.Screens.Orders)
	defer s.Close()

	if *status != "" {
		s.SetStatus(domain.OrderStatus(*status))
	}
	if *from != "" || *to != "" {
		s.SetDateRange(*from, *to)
	}
	if *phone != "" {
		s.SetPhoneSearch(*phone)
		s.FlushSearch()
	}
	if *page > 0 {
		s.SetPage(*page)
	}

	render := func() { printOrders(os.Stdout, s.View().State) }
	if *live {
		watch(ctx, s.State, render)
		return nil
	}
	if err := stateErr(s.State()); err != nil {
		return err
	}
	render()
	return nil
}

func runOrder(ctx context.Context, a *app.App, args []string) error {
	if len(args) < 2 {
		return errUsage
	}
	orders := a.Services.Orders
	id, err := parseID(args[1])
	if err != nil {
		return err
	}

	switch args[0] {
	case "show":
		details, err := orders.Details(ctx, id)
		if err != nil {
			return err
		}
		events, err := orders.Timeline(ctx, id)
		if err != nil {
			return err
		}
		printOrderDetails(os.Stdout, details, events)
		return nil

	case "advance":
		details, err := orders.Details(ctx, id)
		if err != nil {
			return err
		}
		next, err := orders.AdvanceStatus(ctx, id, details.Status)
		if err != nil {
			return err
		}
		fmt.Printf("Order %d is now %s\n", id, next)
		return nil

	case "cancel":
		details, err := orders.Details(ctx, id)
		if err != nil {
			return err
		}
		return orders.Cancel(ctx, id, details.Status)

	case "assign":
		if len(args) != 3 {
			return errUsage
		}
		return orders.Assign(ctx, id, args[2])

	case "receipt":
		data, _, err := orders.Receipt(ctx, id)
		if err != nil {
			return err
		}
		path := fmt.Sprintf("receipt-%d.pdf", id)
		if len(args) == 3 {
			path = args[2]
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return err
		}
		fmt.Printf("Saved %s\n", path)
		return nil
	}
	return errUsage
}

func runDelivery(ctx context.Context, a *app.App, args []string) error {
	fs := newFlags("delivery")
	status := fs.String("status", string(domain.OrderStatusPacked), "board tab")
	page := fs.Int("page", 0, "page index")
	assign := fs.String("assign", "", "delivery person phone")
	ids := fs.StringSlice("ids", nil, "orders to assign; all on the page when empty")
	live := fs.Bool("watch", false, "keep polling")
	if err := fs.Parse(args); err != nil {
		return err
	}

	s := screens.NewDelivery(ctx, a.Cache, a.Services.Orders, a.Screens.Delivery)
	defer s.Close()

	if domain.OrderStatus(*status) != domain.OrderStatusPacked {
		s.SetStatus(domain.OrderStatus(*status))
	}
	if *page > 0 {
		s.SetPage(*page)
	}

	if *assign != "" {
		if len(*ids) == 0 {
			s.SelectAll()
		}
		for _, raw := range *ids {
			id, err := parseID(raw)
			if err != nil {
				return err
			}
			s.Toggle(id)
		}
		res, err := s.AssignSelected(ctx, *assign)
		printAssignResult(os.Stdout, res)
		return err
	}

	render := func() { printOrders(os.Stdout, s.View().State) }
	if *live {
		watch(ctx, s.State, render)
		return nil
	}
	if err := stateErr(s.State()); err != nil {
		return err
	}
	render()
	return nil
}

func runFeedback(ctx context.Context, a *app.App, args []string) error {
	fs := newFlags("feedback")
	phone := fs.String("phone", "", "customer phone")
	page := fs.Int("page", 0, "page index")
	if err := fs.Parse(args); err != nil {
		return err
	}

	s := screens.NewFeedback(ctx, a.Cache, a.Services.Feedback, a.Screens.Feedback)
	defer s.Close()

	if *phone != "" {
		s.SetPhoneSearch(*phone)
		s.FlushSearch()
	}
	if *page > 0 {
		s.SetPage(*page)
	}

	st := s.State()
	if err := stateErr(st); err != nil {
		return err
	}
	printFeedback(os.Stdout, st)
	return nil
}

func runIssues(ctx context.Context, a *app.App, args []string) error {
	fs := newFlags("issues")
	status := fs.String("status", "", "ticket status")
	severity := fs.String("severity", "", "ticket severity")
	page := fs.Int("page", 0, "page index")
	live := fs.Bool("watch", false, "keep polling")
	if err := fs.Parse(args); err != nil {
		return err
	}

	s := screens.NewIssues(ctx, a.Cache, a.Services.Issues, a.Screens.Issues)
	defer s.Close()

	if *status != "" {
		s.SetStatus(domain.IssueStatus(*status))
	}
	if *severity != "" {
		s.SetSeverity(domain.Severity(*severity))
	}
	if *page > 0 {
		s.SetPage(*page)
	}

	render := func() { printIssues(os.Stdout, s.View().State) }
	if *live {
		watch(ctx, s.State, render)
		return nil
	}
	if err := stateErr(s.State()); err != nil {
		return err
	}
	render()
	return nil
}

func runIssue(ctx context.Context, a *app.App, args []string) error {
	if len(args) != 3 {
		return errUsage
	}
	id, err := parseID(args[1])
	if err != nil {
		return err
	}
	current := domain.IssueStatus(args[2])

	switch args[0] {
	case "acknowledge":
		return a.Services.Issues.Acknowledge(ctx, id, current)
	case "resolve":
		return a.Services.Issues.Resolve(ctx, id, current)
	}
	return errUsage
}

func runDashboard(ctx context.Context, a *app.App, args []string) error {
	fs := newFlags("dashboard")
	live := fs.Bool("watch", false, "keep polling")
	if err := fs.Parse(args); err != nil {
		return err
	}

	d := screens.NewDashboard(ctx, a.Cache, a.Services.Dashboard, a.Screens.Dashboard)
	defer d.Close()

	render := func() { printDashboard(os.Stdout, d.View()) }
	if *live {
		watch(ctx, func() cache.QueryState { return d.View().Summary }, render)
		return nil
	}
	v := d.View()
	for _, st := range []cache.QueryState{v.Summary, v.SalesLast7Days, v.SalesComparison} {
		if err := stateErr(st); err != nil {
			return err
		}
	}
	render()
	return nil
}

func runAudit(ctx context.Context, a *app.App, args []string) error {
	fs := newFlags("audit")
	limit := fs.Int("limit", 50, "entries to show")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if a.Audit == nil {
		return errors.New("audit log is disabled, set AUDIT_ENABLED=true")
	}

	entries, err := a.Audit.ListRecent(ctx, *limit)
	if err != nil {
		return err
	}
	printAudit(os.Stdout, entries)
	return nil
}
