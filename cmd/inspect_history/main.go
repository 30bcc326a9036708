// Inspect a raceodds history database from the shell.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	_ "modernc.org/sqlite"
)

var compactQuery = `SELECT id, ts, substr(session_id, 1, 8) AS session, format,
	win||'-'||lose AS score, goal,
	printf('%.4f', mid) AS mid,
	printf('%.1f%%', mid*100) AS chance
FROM odds_history %s ORDER BY id DESC LIMIT ?`

func main() {
	n := flag.Int("n", 10, "number of recent rows to display")
	dbPath := flag.String("db", "raceodds_history.db", "history database path")
	session := flag.String("session", "", "only rows for this session prefix")
	verbose := flag.Bool("v", false, "show all columns (raw schema)")
	flag.Parse()

	if _, err := os.Stat(*dbPath); err != nil {
		fmt.Fprintf(os.Stderr, "cannot stat %s: %v\n", *dbPath, err)
		os.Exit(1)
	}

	if *verbose {
		printRaw(*dbPath, *n)
		return
	}
	printCompact(*dbPath, *session, *n)
}

func printCompact(dbPath, session string, n int) {
	fmt.Println("=== Odds History ===")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		fmt.Printf("  (cannot open %s: %v)\n", dbPath, err)
		return
	}
	defer db.Close()

	count, size := dbStats(db)
	if count == 0 {
		fmt.Println("(no data)")
		return
	}
	fmt.Printf("Rows: %s  |  Size: %s  |  Showing last %d:\n",
		humanize.Comma(count), humanize.Bytes(uint64(size)), min(n, int(count)))

	where := ""
	args := []any{n}
	if session != "" {
		where = "WHERE session_id LIKE ?"
		args = []any{session + "%", n}
	}
	printQuery(db, fmt.Sprintf(compactQuery, where), args...)
}

func printRaw(dbPath string, n int) {
	fmt.Println("=== Odds History (verbose) ===")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		fmt.Printf("  (cannot open %s: %v)\n", dbPath, err)
		return
	}
	defer db.Close()

	count, size := dbStats(db)
	if count == 0 {
		fmt.Println("(no data)")
		return
	}
	fmt.Printf("Rows: %s  |  Size: %s  |  Showing last %d:\n",
		humanize.Comma(count), humanize.Bytes(uint64(size)), min(n, int(count)))

	printQuery(db, "SELECT * FROM odds_history ORDER BY id DESC LIMIT ?", n)
}

func dbStats(db *sql.DB) (count, size int64) {
	if err := db.QueryRow("SELECT COUNT(*) FROM odds_history").Scan(&count); err != nil {
		fmt.Printf("  (cannot count rows: %v)\n", err)
		return 0, 0
	}
	db.QueryRow("SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()").Scan(&size)
	return count, size
}

func printQuery(db *sql.DB, query string, args ...any) {
	rows, err := db.Query(query, args...)
	if err != nil {
		fmt.Printf("  (query error: %v)\n", err)
		return
	}
	defer rows.Close()

	colNames, _ := rows.Columns()
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(colNames, "\t"))
	fmt.Fprintln(w, strings.Repeat("----\t", len(colNames)))

	vals := make([]any, len(colNames))
	ptrs := make([]any, len(colNames))
	for i := range vals {
		ptrs[i] = &vals[i]
	}

	var rowBuf [][]string
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			fmt.Fprintf(os.Stderr, "  scan error: %v\n", err)
			continue
		}
		cells := make([]string, len(colNames))
		for i, v := range vals {
			cells[i] = fmtCell(v)
		}
		rowBuf = append(rowBuf, cells)
	}

	// Fetched newest-first; print oldest-first so the latest row lands
	// at the bottom of the terminal.
	for i := len(rowBuf) - 1; i >= 0; i-- {
		fmt.Fprintln(w, strings.Join(rowBuf[i], "\t"))
	}
	w.Flush()
}

func fmtCell(v any) string {
	if v == nil {
		return "-"
	}
	switch x := v.(type) {
	case float64:
		if x == float64(int64(x)) {
			return fmt.Sprintf("%d", int64(x))
		}
		return fmt.Sprintf("%.5f", x)
	case int64:
		return fmt.Sprintf("%d", x)
	case []byte:
		return string(x)
	case string:
		return x
	default:
		return fmt.Sprintf("%v", v)
	}
}
