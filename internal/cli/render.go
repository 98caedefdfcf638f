package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/leca/skureview/internal/api"
	"github.com/leca/skureview/internal/model"
	"github.com/leca/skureview/internal/review"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func renderMerges(w io.Writer, merges []api.ImageMerge) {
	merged := 0
	tw := newTable(w)
	fmt.Fprintln(tw, "FILE\tRESULT")
	for _, m := range merges {
		if m.Merged() {
			merged++
		}
		fmt.Fprintf(tw, "%s\t%s\n", m.Filename, m.Status)
	}
	tw.Flush()
	fmt.Fprintf(w, "%d of %d images merged\n", merged, len(merges))
}

func renderSKUs(w io.Writer, skus []model.SKU) {
	if len(skus) == 0 {
		fmt.Fprintln(w, "No SKUs found")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "SKU\tTOTAL\tAPPROVED\tREJECTED\tPENDING")
	for _, s := range skus {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n", s.ID(), s.Total, s.Approved, s.Rejected, s.Pending)
	}
	tw.Flush()
}

func renderStats(w io.Writer, st model.Stats) {
	fmt.Fprintf(w, "Approved %d  Rejected %d  Pending %d  (%d images)\n", st.Approved, st.Rejected, st.Pending, st.Total())
}

func renderGroups(w io.Writer, g model.Groups, imageURL func(string) string) {
	if g.Empty() {
		fmt.Fprintln(w, "No images for this SKU")
		return
	}
	renderGroup(w, "Manufacturer images", g.Manufacturer, imageURL)
	renderGroup(w, "Client images", g.Client, imageURL)
}

func renderGroup(w io.Writer, title string, images []model.Image, imageURL func(string) string) {
	if len(images) == 0 {
		return
	}
	fmt.Fprintf(w, "%s (%d)\n", title, len(images))
	tw := newTable(w)
	fmt.Fprintln(tw, "  IMAGE\tSTATUS\tORDER\tPROVIDER\tDETAILS\tNOTES")
	for _, img := range images {
		order := img.DisplayOrder.String()
		if order == "" {
			order = "-"
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\t%s\n",
			img.ImageName, img.EffectiveStatus(), order, img.ProviderLabel(), details(img), img.Notes)
	}
	tw.Flush()
	if imageURL == nil {
		return
	}
	for _, img := range images {
		if u := imageURL(img.ImagePath.String()); u != "" {
			fmt.Fprintf(w, "  %s: %s\n", img.ImageName, u)
		}
	}
}

// details joins the non-empty technical fields of an image.
func details(img model.Image) string {
	var parts []string
	add := func(label string, v model.FlexString) {
		if v != "" {
			parts = append(parts, label+v.String())
		}
	}
	add("", img.Format)
	add("", img.Resolution)
	add("", img.Size)
	add("dpi ", img.DPI)
	if img.Width != "" && img.Height != "" {
		parts = append(parts, img.Width.String()+"x"+img.Height.String()+"px")
	}
	add("", img.ColorMode)
	add("bg ", img.Background)
	add("watermark ", img.Watermark)
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, " ")
}

func renderView(w io.Writer, v review.View) {
	if v.Selected == "" {
		fmt.Fprintln(w, "No SKU selected")
		return
	}
	header := fmt.Sprintf("Record %d / %d  SKU %s", v.Position.Record(), v.Position.Total, v.Selected)
	switch {
	case v.Resetting:
		header += "  [resetting]"
	case v.Loading:
		header += "  [loading]"
	}
	if v.Saving > 0 {
		header += fmt.Sprintf("  [saving %d]", v.Saving)
	}
	if v.Filter != "" {
		header += fmt.Sprintf("  filter %q", v.Filter)
	}
	fmt.Fprintln(w, header)
	if v.Preview != nil {
		fmt.Fprintf(w, "Previewing %s\n", v.Preview.Name)
	}
	renderStats(w, v.Stats)
	renderGroups(w, v.Groups, nil)
}

const consoleHelp = `Commands:
  show                      redraw the selected SKU
  select <sku>              select a SKU
  next | prev               move within the filtered SKU list
  filter [text]             filter SKUs by id (empty clears)
  skus                      list the filtered SKUs
  approve|reject|pending <image>
  order <image> <n|->       set or clear the display order
  notes <image> [text]      set the notes (empty clears)
  reset                     return every image of the SKU to pending
  stats                     show review counts
  preview [image]           save a thumbnail of an image (no image clears it)
  export <kind>             download ` + exportKindsHelp + `
  refresh                   reload the SKU and the catalog
  help                      show this help
  quit                      wait for pending saves and exit
`
