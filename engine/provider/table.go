package provider

import (
	"context"

	"github.com/gputrace/tracevis/engine/eventbus"
	"github.com/gputrace/tracevis/engine/models"
)

// tableRequestType maps a table type to its singleton request type (§4.2.2:
// one constant request id per table type, never chunked).
func tableRequestType(t models.TableType) models.RequestType {
	switch t {
	case models.TableTypeSample:
		return models.RequestTypeSampleTable
	case models.TableTypeEventSearch:
		return models.RequestTypeEventSearch
	case models.TableTypeSummaryKernel:
		return models.RequestTypeSummaryKernelInstanceTable
	case models.TableTypeEvent:
		return models.RequestTypeEventTable
	default:
		return models.RequestTypeComputeTable
	}
}

func (p *Provider) ensureTableHandle(t models.TableType) (models.Handle, bool) {
	if h, ok := p.tableHandle[t]; ok {
		return h, true
	}
	h, rc := p.controller.Alloc(context.Background())
	if rc != models.ResultSuccess {
		return models.InvalidHandle, false
	}
	p.tableHandle[t] = h
	return h, true
}

// FetchTable is the unified entry point for all table types (§4.2.4). It
// rejects if the provider isn't ready or a request of the same table type
// is already pending.
func (p *Provider) FetchTable(args models.TableQueryArgs) bool {
	if p.state != models.ProviderStateReady {
		return false
	}
	reqType := tableRequestType(args.TableType)
	reqID := models.MakeSingletonRequestID(reqType)
	if _, exists := p.requests[reqID]; exists {
		return false
	}
	tableHandle, ok := p.ensureTableHandle(args.TableType)
	if !ok {
		return false
	}

	argsHandle, rc := p.controller.ArgumentsAlloc()
	if rc != models.ResultSuccess {
		return false
	}
	dst, rc := p.controller.ArgumentsGet(argsHandle)
	if rc != models.ResultSuccess {
		_ = p.controller.ArgumentsFree(argsHandle)
		return false
	}
	*dst = *args.ToArguments(argsHandle)

	future, rc := p.controller.FutureAlloc()
	if rc != models.ResultSuccess {
		_ = p.controller.ArgumentsFree(argsHandle)
		return false
	}
	array, rc := p.controller.ArrayAlloc(0)
	if rc != models.ResultSuccess {
		_ = p.controller.FutureFree(future)
		_ = p.controller.ArgumentsFree(argsHandle)
		return false
	}

	rc = p.controller.TableFetchAsync(p.controllerHandle, tableHandle, argsHandle, future, array)
	if rc != models.ResultSuccess {
		_ = p.controller.ArrayFree(array)
		_ = p.controller.FutureFree(future)
		_ = p.controller.ArgumentsFree(argsHandle)
		return false
	}

	p.requests[reqID] = &requestEntry{
		req: models.DataRequest{
			RequestID: reqID, RequestType: reqType, Future: future, Array: array,
			Arguments: argsHandle, HasArguments: true, ObjectHandle: tableHandle, HasObject: true,
			RequestTime: nowStamp(), State: models.RequestStatePending,
		},
		tableType: args.TableType, tableArgs: args,
	}
	return true
}

// ExportTable re-issues a table fetch with paging sentinels and an output
// path, asking the backend to materialise the whole result set (§4.3.3).
func (p *Provider) ExportTable(args models.TableQueryArgs, outputPath string) bool {
	args.StartRow = models.InvalidIndex64
	args.RequestedRows = models.InvalidIndex64
	args.OutputPath = outputPath

	if p.state != models.ProviderStateReady {
		return false
	}
	reqID := models.MakeSingletonRequestID(models.RequestTypeTableExport)
	if _, exists := p.requests[reqID]; exists {
		return false
	}
	tableHandle, ok := p.ensureTableHandle(args.TableType)
	if !ok {
		return false
	}
	argsHandle, rc := p.controller.ArgumentsAlloc()
	if rc != models.ResultSuccess {
		return false
	}
	dst, rc := p.controller.ArgumentsGet(argsHandle)
	if rc != models.ResultSuccess {
		_ = p.controller.ArgumentsFree(argsHandle)
		return false
	}
	*dst = *args.ToArguments(argsHandle)

	future, rc := p.controller.FutureAlloc()
	if rc != models.ResultSuccess {
		_ = p.controller.ArgumentsFree(argsHandle)
		return false
	}
	array, rc := p.controller.ArrayAlloc(0)
	if rc != models.ResultSuccess {
		_ = p.controller.FutureFree(future)
		_ = p.controller.ArgumentsFree(argsHandle)
		return false
	}
	rc = p.controller.TableFetchAsync(p.controllerHandle, tableHandle, argsHandle, future, array)
	if rc != models.ResultSuccess {
		_ = p.controller.ArrayFree(array)
		_ = p.controller.FutureFree(future)
		_ = p.controller.ArgumentsFree(argsHandle)
		return false
	}

	p.requests[reqID] = &requestEntry{
		req: models.DataRequest{
			RequestID: reqID, RequestType: models.RequestTypeTableExport, Future: future, Array: array,
			Arguments: argsHandle, HasArguments: true, ObjectHandle: tableHandle, HasObject: true,
			RequestTime: nowStamp(), State: models.RequestStatePending,
		},
		tableType: args.TableType, tableArgs: args,
	}
	return true
}

// mergeTableResponse applies a completed table_fetch_async response into the
// provider's table cache (§4.2.4, §3 Table info).
func (p *Provider) mergeTableResponse(ctx context.Context, entry *requestEntry) {
	table := p.tables[entry.tableType]
	if table == nil {
		table = models.NewTableInfo(entry.tableType)
		p.tables[entry.tableType] = table
	}
	if entry.req.ResponseCode != models.ResultSuccess {
		p.logger.ErrorCtx(ctx, "provider: table fetch failed", "table_type", entry.tableType.String(), "result", entry.req.ResponseCode.String())
		return
	}

	tableHandle := entry.req.ObjectHandle
	numCols, _ := p.controller.GetUint64(tableHandle, models.TablePropNumberOfColumns, 0)
	header := make([]string, numCols)
	for i := range header {
		header[i], _ = p.controller.GetString(tableHandle, models.TablePropColumnNameIndexed, uint32(i))
	}
	table.SetHeader(header, "event_id")

	total, _ := p.controller.GetUint64(tableHandle, models.TablePropNumberOfRows, 0)
	table.TotalRows = total
	table.RequestParams = entry.tableArgs
	table.StartRow = entry.tableArgs.StartRow
	if table.StartRow == models.InvalidIndex64 {
		table.StartRow = 0
	}

	arr, rc := p.controller.ArrayGet(entry.req.Array)
	if rc != models.ResultSuccess {
		return
	}
	rows := make([]models.Row, 0, arr.NumEntries())
	for i := uint32(0); i < arr.NumEntries(); i++ {
		v, err := arr.At(i)
		if err != nil {
			continue
		}
		rowHandle := v.Object
		numCells, _ := p.controller.GetUint64(rowHandle, models.TableRowPropNumberOfCells, 0)
		cells := make([]string, numCells)
		for j := range cells {
			cells[j], _ = p.controller.GetString(rowHandle, models.TableRowPropCellValueIndexed, uint32(j))
		}
		rows = append(rows, models.Row{Cells: cells})
	}
	table.Rows = rows

	if p.resources != nil {
		p.resources.StoreTable(table)
	}
	if p.callbacks.TableDataReady != nil {
		p.callbacks.TableDataReady(p.loadPath, entry.req.RequestID)
	}
	if p.bus != nil {
		p.bus.AddEvent(eventbus.NewEvent(eventbus.KindNewTableData, p.loadPath, entry.tableType))
	}
}

// TableInfo returns the cached table state for t, if any data has arrived.
func (p *Provider) TableInfo(t models.TableType) (*models.TableInfo, bool) {
	ti, ok := p.tables[t]
	return ti, ok
}
