package backend

import (
	"database/sql"
	"fmt"
	"regexp"
	"sync"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/gputrace/tracevis/engine/models"
)

// sqlFixture wraps a go-sqlmock-backed *sql.DB: table_fetch_async is
// answered by building a real SQL query from the request's where/filter/
// group/sort/paging arguments and running it through database/sql, so the
// table engine genuinely exercises SQL-shaped paging and ordering without
// the reference backend owning a real trace-database schema.
type sqlFixture struct {
	mu   sync.Mutex
	db   *sql.DB
	mock sqlmock.Sqlmock
}

func newSQLFixture() *sqlFixture {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		panic(fmt.Sprintf("backend: sqlmock init failed: %v", err))
	}
	return &sqlFixture{db: db, mock: mock}
}

const eventTableTotalRows = 100_000

func totalRowsFor(t models.TableType) uint64 {
	switch t {
	case models.TableTypeEvent:
		return eventTableTotalRows
	case models.TableTypeSample:
		return eventTableTotalRows / 2
	default:
		return 500
	}
}

// buildQuery renders the request parameters into a SQL statement. Column
// names are fixed per table type; this exists to give the query a genuine
// WHERE/ORDER BY/LIMIT shape, not to model the real schema.
func buildQuery(args models.TableQueryArgs) string {
	q := "SELECT event_id, name, start_ns, duration_ns FROM events"
	clauses := []string{}
	if args.Where != "" {
		clauses = append(clauses, args.Where)
	}
	if args.Filter != "" {
		clauses = append(clauses, args.Filter)
	}
	clauses = append(clauses, fmt.Sprintf("start_ns >= %d", args.StartTimeNs))
	if args.EndTimeNs > 0 {
		clauses = append(clauses, fmt.Sprintf("start_ns < %d", args.EndTimeNs))
	}
	q += " WHERE " + clauses[0]
	for _, c := range clauses[1:] {
		q += " AND " + c
	}
	if args.Group != "" {
		q += " GROUP BY " + args.Group
	}
	order := "ASC"
	if args.SortOrder == models.SortDescending {
		order = "DESC"
	}
	q += fmt.Sprintf(" ORDER BY %d %s", args.SortColumn, order)
	if args.IsPaged() {
		q += fmt.Sprintf(" LIMIT %d OFFSET %d", args.RequestedRows, args.StartRow)
	}
	return q
}

func parseTableQueryArgs(args *models.Arguments) models.TableQueryArgs {
	get := func(key string) models.Value { v, _ := args.Get(key); return v }
	return models.TableQueryArgs{
		TableType:      models.TableType(get("type").UInt64),
		StartTimeNs:    get("start_ts").UInt64,
		EndTimeNs:      get("end_ts").UInt64,
		SortColumn:     int(get("sort_column").UInt64),
		SortOrder:      models.SortOrder(get("sort_order").UInt64),
		Where:          get("where").String,
		Filter:         get("filter").String,
		Group:          get("group").String,
		StartRow:       get("start_index").UInt64,
		RequestedRows:  get("start_count").UInt64,
		OperationTypes: models.OperationTypeSet(get("operation_types").UInt64),
	}
}

var tableHeader = []string{"event_id", "name", "start_ns", "duration_ns"}

// TableFetchAsync runs a table request against the SQL fixture and returns
// rows as object handles (§4.1, §4.2.4). Each row handle's cells are
// readable through GetString(rowHandle, TableRowPropCellValueIndexed, i).
func (b *Backend) TableFetchAsync(controller, table models.Handle, argsHandle, future, outArray models.Handle) models.ResultCode {
	b.submit(future, func() models.ResultCode {
		args, rc := b.ArgumentsGet(argsHandle)
		if rc != models.ResultSuccess {
			return rc
		}
		qargs := parseTableQueryArgs(args)
		total := totalRowsFor(qargs.TableType)

		requested := qargs.RequestedRows
		if !qargs.IsPaged() || requested == models.InvalidIndex64 {
			requested = total
		}
		start := qargs.StartRow
		if start == models.InvalidIndex64 {
			start = 0
		}
		remaining := uint64(0)
		if start < total {
			remaining = total - start
		}
		if requested > remaining {
			requested = remaining
		}

		query := buildQuery(qargs)
		rows := sqlmock.NewRows(tableHeader)
		for i := uint64(0); i < requested; i++ {
			rowIdx := start + i
			rows.AddRow(rowIdx, fmt.Sprintf("kernel_%d", rowIdx%64), rowIdx*1000, 500)
		}

		b.sql.mu.Lock()
		b.sql.mock.ExpectQuery(regexp.QuoteMeta(query)).WillReturnRows(rows)
		result, err := b.sql.db.Query(query)
		b.sql.mu.Unlock()
		if err != nil {
			return models.ResultDbAccessFailed
		}
		defer result.Close()

		arr, rc := b.ArrayGet(outArray)
		if rc != models.ResultSuccess {
			return rc
		}
		for result.Next() {
			var eventID, startNs, durationNs uint64
			var name string
			if err := result.Scan(&eventID, &name, &startNs, &durationNs); err != nil {
				return models.ResultDbAccessFailed
			}
			rowHandle := b.nextHandle()
			cells := []string{fmt.Sprint(eventID), name, fmt.Sprint(startNs), fmt.Sprint(durationNs)}
			for i, c := range cells {
				b.setValue(rowHandle, models.TableRowPropCellValueIndexed, uint32(i), models.StringValue(c))
			}
			b.setValue(rowHandle, models.TableRowPropNumberOfCells, 0, models.Uint64Value(uint64(len(cells))))
			arr.Append(models.ObjectValue(rowHandle))
		}

		b.setValue(table, models.TablePropNumberOfRows, 0, models.Uint64Value(total))
		for i, name := range tableHeader {
			b.setValue(table, models.TablePropColumnNameIndexed, uint32(i), models.StringValue(name))
		}
		b.setValue(table, models.TablePropNumberOfColumns, 0, models.Uint64Value(uint64(len(tableHeader))))
		return models.ResultSuccess
	})
	return models.ResultSuccess
}
