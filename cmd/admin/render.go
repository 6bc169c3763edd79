package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/jafarshop/groceryadmin/internal/cache"
	"github.com/jafarshop/groceryadmin/internal/domain"
	"github.com/jafarshop/groceryadmin/internal/screens"
	"github.com/jafarshop/groceryadmin/internal/service"
)

func table(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func pageFooter(w io.Writer, page, totalPages, total int) {
	if totalPages == 0 {
		totalPages = 1
	}
	fmt.Fprintf(w, "\npage %d of %d, %d total\n", page+1, totalPages, total)
}

func placeholderNote(w io.Writer, st cache.QueryState) {
	if st.IsPlaceholder {
		fmt.Fprintln(w, "(showing previous results while loading)")
	}
}

func printInventory(w io.Writer, v screens.InventoryView) {
	tw := table(w)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tUNIT\tPRICE\tSTOCK\tACTIVE")
	for _, p := range v.Page.Items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\t%t\n", p.ID, p.Name, p.Category, p.Unit, p.Price.StringFixed(2), p.Stock, p.Active)
	}
	tw.Flush()
	pageFooter(w, v.Page.Page, v.Page.TotalPages, v.Page.TotalElements)
	fmt.Fprintf(w, "low stock: %d, out of stock: %d\n", v.LowStock, v.OutOfStock)
}

func printOrders(w io.Writer, st cache.QueryState) {
	page := screens.PageOf[domain.Order](st)
	placeholderNote(w, st)

	tw := table(w)
	fmt.Fprintln(tw, "ID\tCUSTOMER\tPHONE\tTOTAL\tSTATUS\tDRIVER\tCREATED")
	for _, o := range page.Content {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			o.ID, o.CustomerName, o.CustomerPhone, o.TotalAmount.StringFixed(2), o.Status, o.DeliveryPersonPhone, o.CreatedAt)
	}
	tw.Flush()
	pageFooter(w, page.Number, page.TotalPages, page.TotalElements)
}

func printOrderDetails(w io.Writer, d *domain.OrderDetails, events []domain.TimelineEvent) {
	fmt.Fprintf(w, "Order %d  %s\n", d.ID, d.Status)
	fmt.Fprintf(w, "Customer: %s (%s)\n", d.CustomerName, d.CustomerPhone)
	fmt.Fprintf(w, "Address:  %s\n", d.Address)
	if d.DeliveryPersonPhone != "" {
		fmt.Fprintf(w, "Driver:   %s (%s)\n", d.DeliveryPersonName, d.DeliveryPersonPhone)
	}

	tw := table(w)
	fmt.Fprintln(tw, "\nPRODUCT\tQTY\tPRICE\tTOTAL")
	for _, it := range d.Items {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", it.ProductName, it.Quantity, it.UnitPrice.StringFixed(2), it.LineTotal.StringFixed(2))
	}
	tw.Flush()
	fmt.Fprintf(w, "Total: %s\n\n", d.TotalAmount.StringFixed(2))

	for _, e := range events {
		fmt.Fprintf(w, "%s  %s\n", e.Timestamp, e.Status)
	}
}

func printAssignResult(w io.Writer, res service.BulkAssignResult) {
	for _, r := range res.Results {
		if r.Err != nil {
			fmt.Fprintf(w, "order %d: failed: %v\n", r.OrderID, r.Err)
			continue
		}
		fmt.Fprintf(w, "order %d: assigned to %s\n", r.OrderID, res.Phone)
	}
}

func printFeedback(w io.Writer, st cache.QueryState) {
	page := screens.PageOf[domain.Suggestion](st)

	tw := table(w)
	fmt.Fprintln(tw, "ID\tPHONE\tSTATUS\tCREATED\tMESSAGE")
	for _, s := range page.Content {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", s.ID, s.UserPhone, s.Status, s.CreatedAt, s.Message)
	}
	tw.Flush()
	pageFooter(w, page.Number, page.TotalPages, page.TotalElements)
}

func printIssues(w io.Writer, st cache.QueryState) {
	page := screens.PageOf[domain.Issue](st)

	tw := table(w)
	fmt.Fprintln(tw, "ID\tORDER\tPHONE\tTYPE\tSEVERITY\tSTATUS\tCREATED")
	for _, is := range page.Content {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\t%s\t%s\n",
			is.ID, is.OrderID, is.CustomerPhone, is.IssueType, is.Severity, is.Status, is.CreatedAt)
	}
	tw.Flush()
	pageFooter(w, page.Number, page.TotalPages, page.TotalElements)
}

func printDashboard(w io.Writer, v screens.DashboardView) {
	if s, ok := v.SummaryData(); ok {
		fmt.Fprintf(w, "Orders: %d total, %d pending, %d delivered\n", s.TotalOrders, s.PendingOrders, s.DeliveredOrders)
		fmt.Fprintf(w, "Revenue: %s\n", s.TotalRevenue.StringFixed(2))
		fmt.Fprintf(w, "Products: %d, low stock %d\n", s.TotalProducts, s.LowStockCount)
		fmt.Fprintf(w, "Open issues: %d\n", s.OpenIssues)
	}
	if c, ok := v.ComparisonData(); ok {
		fmt.Fprintf(w, "\nToday %s (%d orders) vs yesterday %s (%d orders), %+.1f%%\n",
			c.TodayRevenue.StringFixed(2), c.TodayOrders, c.YesterdayRevenue.StringFixed(2), c.YesterdayOrders, c.PercentageChange)
	}
	if sales, ok := v.SalesData(); ok {
		tw := table(w)
		fmt.Fprintln(tw, "\nDATE\tORDERS\tREVENUE")
		for _, d := range sales {
			fmt.Fprintf(tw, "%s\t%d\t%s\n", d.Date, d.OrderCount, d.Revenue.StringFixed(2))
		}
		tw.Flush()
	}
}

func printAudit(w io.Writer, entries []*domain.AuditEntry) {
	tw := table(w)
	fmt.Fprintln(tw, "TIME\tACTION\tTARGET\tOUTCOME\tROLE\tMESSAGE")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.CreatedAt.Format("2006-01-02 15:04:05"), e.Action, e.Target, e.Outcome, e.Role, e.Message)
	}
	tw.Flush()
}
