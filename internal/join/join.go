// Package join replaces the free-text company and payment type of each trip with master ids.
package join

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/tigerroll/chicago-taxi-etl/internal/master"
	"github.com/tigerroll/chicago-taxi-etl/internal/table"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/support/util/exception"
)

const module = "join"

// ErrUnknownMasterValue is returned when a trip value has no row in its master table.
var ErrUnknownMasterValue = errors.New("value missing from master table")

// Join equality-joins trips on payment_type then company and drops both text columns.
// The result keeps the trip row order; its columns are the remaining trip columns
// followed by payment_type_id and company_id.
// Ids are resolved by exact value match, so every cell joins as written, including
// text such as "NaN" that a dataframe join would treat as missing.
func Join(trips *table.Table, paymentTypes, companies *master.Table) (*table.Table, error) {
	var keep []string
	for _, c := range trips.Names() {
		if c != paymentTypes.ValueColumn && c != companies.ValueColumn {
			keep = append(keep, c)
		}
	}

	out := trips
	for _, m := range []*master.Table{paymentTypes, companies} {
		ids, err := resolveIDs(trips, m)
		if err != nil {
			return nil, err
		}
		if out, err = out.WithColumn(m.IDColumn, ids); err != nil {
			return nil, fmt.Errorf("failed to add '%s': %w", m.IDColumn, err)
		}
	}
	return out.Select(append(keep, paymentTypes.IDColumn, companies.IDColumn)...)
}

// resolveIDs maps every trip value of m's value column to its id. It fails on the first
// value that m cannot resolve.
func resolveIDs(trips *table.Table, m *master.Table) ([]string, error) {
	values, err := trips.Column(m.ValueColumn)
	if err != nil {
		return nil, exception.NewMalformedInputError(module, fmt.Sprintf("trips have no '%s' column", m.ValueColumn), err)
	}
	index := make(map[string]int, m.Len())
	for _, r := range m.Rows() {
		index[r.Value] = r.ID
	}
	ids := make([]string, len(values))
	for i, v := range values {
		id, ok := index[v]
		if !ok {
			return nil, fmt.Errorf("row %d %s '%s': %w", i, m.ValueColumn, v, ErrUnknownMasterValue)
		}
		ids[i] = strconv.Itoa(id)
	}
	return ids, nil
}
