package tools

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"strconv"

	"github.com/ARahim900/muscatbay-sub004/entity"

	uuid "github.com/satori/go.uuid"
)

func NewUuid() string {
	id := uuid.NewV4()
	return id.String()
}

// GenerateWaterCSV writes a sample standard-layout export for meters with
// random readings for days 1..days. Handy for feeding the inbox locally.
func GenerateWaterCSV(fileName string, meters []entity.Meter, days int) error {
	if days < 1 || days > entity.MaxDay {
		return fmt.Errorf("days must be within 1..%d", entity.MaxDay)
	}
	f, err := os.Create(fileName)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)

	header := []string{"Meter Name", "Acct #", "Label", "Zone", "Parent Meter", "Type"}
	for d := 1; d <= days; d++ {
		header = append(header, fmt.Sprintf("Day %d", d))
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, m := range meters {
		row := []string{m.Label, m.AccountNumber, m.Level, m.Zone, m.ParentMeter, m.Type}
		for d := 1; d <= days; d++ {
			row = append(row, strconv.FormatFloat(float64(rand.Intn(50000))/100, 'f', 2, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
