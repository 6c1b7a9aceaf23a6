package main

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestExtractTables(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("0001_init.up.sql", "CREATE TABLE IF NOT EXISTS orders (id uuid);\ncreate table if not exists order_items (id uuid);")
	write("0001_init.down.sql", "CREATE TABLE IF NOT EXISTS ignored (id uuid);")
	write("0002_more.up.sql", "CREATE TABLE IF NOT EXISTS settings (key text);")

	got, err := extractTables(dir)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"orders", "order_items", "settings"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestContains(t *testing.T) {
	if !contains([]int{200, 201}, 201) || contains([]int{409}, 200) {
		t.Fatal("contains mismatch")
	}
}
