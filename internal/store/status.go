package store

import (
	"fmt"
	"io"

	"github.com/huangsam/kpiroll/schema"
	"github.com/samber/lo"
)

// PrintStoreStatus writes metric store status information to w.
func PrintStoreStatus(w io.Writer, status schema.StoreStatus) {
	_, _ = fmt.Fprintf(w, "Store Backend: %s\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	_, _ = fmt.Fprintf(w, "Total Values: %d\n", status.TotalValues)
	_, _ = fmt.Fprintf(w, "Import Batches: %d\n", status.TotalBatches)
	if status.TotalValues > 0 {
		countries := lo.Map(status.Countries, func(c string, _ int) string {
			return lo.Ternary(c == "", schema.GlobalCountry, c)
		})
		_, _ = fmt.Fprintf(w, "Countries: %v\n", countries)
		_, _ = fmt.Fprintf(w, "Periods: %s to %s\n", status.OldestPeriod.Format("Jan 2006"), status.LatestPeriod.Format("Jan 2006"))
	}
	if status.TotalBatches > 0 {
		_, _ = fmt.Fprintf(w, "Last Import: %s\n", status.LastImportTime.Format("2006-01-02 15:04:05"))
	}
	_, _ = fmt.Fprintf(w, "Table Size: %d bytes\n", status.TableSizeBytes)
}
