package testsupport

import (
	"context"
	"testing"
)

func TestClickHouseCleanupDropsTable(t *testing.T) {
	configs := LoadDatabaseConfigsFromEnv(t)

	helper := NewClickHouseTestHelper(t, configs.ClickHouse)
	table := helper.CreateTempTable(t, "id UInt64, value String")

	if err := helper.Client().Exec(context.Background(), "INSERT INTO "+table+" (id, value) VALUES (1, 'abc')"); err != nil {
		t.Fatalf("failed to insert row: %v", err)
	}

	var count uint64
	row := helper.Client().Conn().QueryRow(context.Background(), "SELECT count() FROM "+table)
	if err := row.Scan(&count); err != nil {
		t.Fatalf("failed to count rows: %v", err)
	}

	if count != 1 {
		t.Fatalf("unexpected row count: %d", count)
	}

	if err := helper.CleanupTable(context.Background(), table); err != nil {
		t.Fatalf("failed to cleanup table: %v", err)
	}

	var exists uint8
	row = helper.Client().Conn().QueryRow(context.Background(), "EXISTS TABLE "+table)
	if err := row.Scan(&exists); err != nil {
		t.Fatalf("failed to check table existence: %v", err)
	}

	if exists != 0 {
		t.Fatalf("expected table to be dropped, exists=%d", exists)
	}
}

func TestBarFixtureBuildMany(t *testing.T) {
	bars := NewBarFixture().WithTimeframe("H4").Bullish().BuildMany(3)

	if len(bars) != 3 {
		t.Fatalf("unexpected bar count: %d", len(bars))
	}
	for i := 1; i < len(bars); i++ {
		gap := bars[i].OpenTime.Sub(bars[i-1].OpenTime)
		if gap.Hours() != 4 {
			t.Fatalf("unexpected gap between bars: %s", gap)
		}
	}
	if !bars[0].IsBullish() {
		t.Fatal("expected bullish candle")
	}
}
