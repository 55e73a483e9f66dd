package mysql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

var usdc = common.HexToAddress("0x0000000000000000000000000000000000001549")

func TestAssetRepositoryLookup(t *testing.T) {
	t.Parallel()

	db, drv := newMockDB(t, []mockOperation{
		queryOp(`SELECT address FROM asset_addresses WHERE network = ? AND asset_id = ?`, mockRowsData{
			columns: []string{"address"},
			values:  [][]driver.Value{{usdc.Hex()}},
		}),
		queryOp(`SELECT address FROM asset_addresses WHERE network = ? AND asset_id = ?`, mockRowsData{
			columns: []string{"address"},
		}),
	})
	defer drv.assertConsumed(t)
	defer db.Close()

	repo := NewAssetRepository(db)
	addr, found, err := repo.Lookup(context.Background(), "testnet", " 0.0.5449 ")
	if err != nil || !found {
		t.Fatalf("lookup failed: found=%v err=%v", found, err)
	}
	if addr != usdc {
		t.Fatalf("unexpected address %s", addr.Hex())
	}
	if got := drv.lastArgs(); got[1] != "0.0.5449" {
		t.Fatalf("asset id not normalized: %v", got)
	}

	_, found, err = repo.Lookup(context.Background(), "testnet", "0.0.1")
	if err != nil {
		t.Fatalf("missing row must not be an error: %v", err)
	}
	if found {
		t.Fatalf("expected found=false for missing row")
	}
}

func TestAssetRepositoryLookupRejectsBadAddress(t *testing.T) {
	t.Parallel()

	db, drv := newMockDB(t, []mockOperation{
		queryOp(`SELECT address FROM asset_addresses WHERE network = ? AND asset_id = ?`, mockRowsData{
			columns: []string{"address"},
			values:  [][]driver.Value{{"0xnothex"}},
		}),
	})
	defer drv.assertConsumed(t)
	defer db.Close()

	if _, _, err := NewAssetRepository(db).Lookup(context.Background(), "testnet", "0.0.5449"); err == nil {
		t.Fatalf("expected error for malformed address")
	}
}

func TestAssetRepositoryUpsertAndList(t *testing.T) {
	t.Parallel()

	db, drv := newMockDB(t, []mockOperation{
		execOp(`INSERT INTO asset_addresses (network, asset_id, symbol, address, decimals, updated_at)
    VALUES (?, ?, ?, ?, ?, ?)
    ON DUPLICATE KEY UPDATE symbol = VALUES(symbol), address = VALUES(address), decimals = VALUES(decimals), updated_at = VALUES(updated_at)`, mockResult{rowsAffected: 1}),
		queryOp(`SELECT network, asset_id, symbol, address, decimals, updated_at
    FROM asset_addresses WHERE network = ? ORDER BY asset_id`, mockRowsData{
			columns: []string{"network", "asset_id", "symbol", "address", "decimals", "updated_at"},
			values: [][]driver.Value{
				{"testnet", "0.0.5449", "USDC", usdc.Hex(), int64(6), int64(1700000000)},
				{"testnet", "0.0.7", "", usdc.Hex(), nil, int64(1700000001)},
			},
		}),
	})
	defer drv.assertConsumed(t)
	defer db.Close()

	repo := NewAssetRepository(db)
	repo.now = func() time.Time { return time.Unix(1700000000, 0) }
	six := 6
	if err := repo.Upsert(context.Background(), AssetRecord{Network: "testnet", AssetID: "0.0.5449", Symbol: "USDC", Address: usdc, Decimals: &six}); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	args := drv.lastArgs()
	if args[3] != usdc.Hex() || args[4] != int64(6) || args[5] != int64(1700000000) {
		t.Fatalf("unexpected upsert args: %v", args)
	}

	records, err := repo.List(context.Background(), "testnet")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Decimals == nil || *records[0].Decimals != 6 {
		t.Fatalf("unexpected decimals: %+v", records[0])
	}
	if records[1].Decimals != nil {
		t.Fatalf("NULL decimals must stay nil: %+v", records[1])
	}
}

func TestAssetRepositoryUpsertValidates(t *testing.T) {
	t.Parallel()

	repo := &AssetRepository{now: time.Now}
	if err := repo.Upsert(context.Background(), AssetRecord{Network: "testnet", Address: usdc}); err == nil {
		t.Fatalf("expected error without asset id")
	}
	if err := repo.Upsert(context.Background(), AssetRecord{Network: "testnet", AssetID: "0.0.1"}); err == nil {
		t.Fatalf("expected error without address")
	}
}

func TestMigrateAppliesPendingOnly(t *testing.T) {
	t.Parallel()

	source := fstest.MapFS{
		"0001_create_asset_addresses.sql": {Data: []byte("CREATE TABLE a (id INT);")},
		"0002_add_index.sql":              {Data: []byte("CREATE INDEX i ON a (id); CREATE INDEX j ON a (id);")},
	}
	db, drv := newMockDB(t, []mockOperation{
		execOp(createSchemaMigrations, mockResult{}),
		queryOp(`SELECT version FROM schema_migrations`, mockRowsData{
			columns: []string{"version"},
			values:  [][]driver.Value{{"0001"}},
		}),
		beginOp(),
		execOp(`CREATE INDEX i ON a (id)`, mockResult{}),
		execOp(`CREATE INDEX j ON a (id)`, mockResult{}),
		execOp(`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`, mockResult{rowsAffected: 1}),
		commitOp(),
	})
	defer drv.assertConsumed(t)
	defer db.Close()

	if err := migrate(context.Background(), db, source); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
}

func TestEmbeddedMigrationsParse(t *testing.T) {
	t.Parallel()

	list, err := readMigrations(embeddedMigrations)
	if err != nil {
		t.Fatalf("read migrations: %v", err)
	}
	if len(list) == 0 || list[0].version != "0001" {
		t.Fatalf("unexpected migrations: %+v", list)
	}
	if !strings.Contains(list[0].statements[0], "asset_addresses") {
		t.Fatalf("first migration must create asset_addresses")
	}
}

type operationType int

const (
	opExec operationType = iota
	opQuery
	opBegin
	opCommit
	opRollback
)

type mockOperation struct {
	typ    operationType
	query  string
	result mockResult
	rows   mockRowsData
	err    error
}

type mockResult struct {
	rowsAffected int64
}

func (r mockResult) LastInsertId() (int64, error) { return 0, nil }
func (r mockResult) RowsAffected() (int64, error) { return r.rowsAffected, nil }

type mockRowsData struct {
	columns []string
	values  [][]driver.Value
}

type queueDriver struct {
	ops  []mockOperation
	idx  int32
	args atomic.Value
}

var driverSeq atomic.Int32

func newMockDB(t *testing.T, ops []mockOperation) (*sql.DB, *queueDriver) {
	t.Helper()

	drv := &queueDriver{ops: ops}
	name := fmt.Sprintf("mock-mysql-%d", driverSeq.Add(1))
	sql.Register(name, drv)

	db, err := sql.Open(name, "")
	if err != nil {
		t.Fatalf("open mock db failed: %v", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return db, drv
}

func execOp(query string, result mockResult) mockOperation {
	return mockOperation{typ: opExec, query: query, result: result}
}

func queryOp(query string, rows mockRowsData) mockOperation {
	return mockOperation{typ: opQuery, query: query, rows: rows}
}

func beginOp() mockOperation { return mockOperation{typ: opBegin} }

func commitOp() mockOperation { return mockOperation{typ: opCommit} }

func (d *queueDriver) assertConsumed(t *testing.T) {
	t.Helper()
	if int(atomic.LoadInt32(&d.idx)) != len(d.ops) {
		t.Fatalf("not all operations consumed: %d/%d", atomic.LoadInt32(&d.idx), len(d.ops))
	}
}

func (d *queueDriver) lastArgs() []driver.Value {
	v, _ := d.args.Load().([]driver.Value)
	return v
}

func (d *queueDriver) record(args []driver.NamedValue) {
	values := make([]driver.Value, len(args))
	for i, a := range args {
		values[i] = a.Value
	}
	d.args.Store(values)
}

func (d *queueDriver) next(expected operationType, query string) (*mockOperation, error) {
	idx := int(atomic.LoadInt32(&d.idx))
	if idx >= len(d.ops) {
		return nil, fmt.Errorf("unexpected operation: %v", expected)
	}
	op := &d.ops[idx]
	if op.typ != expected {
		return nil, fmt.Errorf("expected operation %v, got %v", op.typ, expected)
	}
	atomic.AddInt32(&d.idx, 1)
	if op.query != "" && normalizeSQL(op.query) != normalizeSQL(query) {
		return nil, fmt.Errorf("unexpected query. want %q got %q", normalizeSQL(op.query), normalizeSQL(query))
	}
	return op, nil
}

func (d *queueDriver) Open(string) (driver.Conn, error) {
	return &mockConn{driver: d}, nil
}

type mockConn struct {
	driver *queueDriver
}

func (c *mockConn) Prepare(query string) (driver.Stmt, error) {
	return nil, fmt.Errorf("prepare not supported: %s", query)
}

func (c *mockConn) Close() error { return nil }

func (c *mockConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

func (c *mockConn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	op, err := c.driver.next(opBegin, "")
	if err != nil {
		return nil, err
	}
	if op.err != nil {
		return nil, op.err
	}
	return &mockTx{driver: c.driver}, nil
}

func (c *mockConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	op, err := c.driver.next(opExec, query)
	if err != nil {
		return nil, err
	}
	c.driver.record(args)
	if op.err != nil {
		return nil, op.err
	}
	return op.result, nil
}

func (c *mockConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	op, err := c.driver.next(opQuery, query)
	if err != nil {
		return nil, err
	}
	c.driver.record(args)
	if op.err != nil {
		return nil, op.err
	}
	return &mockRows{columns: op.rows.columns, values: op.rows.values}, nil
}

type mockTx struct {
	driver *queueDriver
}

func (t *mockTx) Commit() error {
	op, err := t.driver.next(opCommit, "")
	if err != nil {
		return err
	}
	return op.err
}

func (t *mockTx) Rollback() error {
	op, err := t.driver.next(opRollback, "")
	if err != nil {
		return err
	}
	return op.err
}

type mockRows struct {
	columns []string
	values  [][]driver.Value
	idx     int
}

func (r *mockRows) Columns() []string { return r.columns }
func (r *mockRows) Close() error      { return nil }

func (r *mockRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.values) {
		return io.EOF
	}
	copy(dest, r.values[r.idx])
	r.idx++
	return nil
}

func normalizeSQL(query string) string {
	return strings.Join(strings.Fields(query), " ")
}
