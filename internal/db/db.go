package db

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

const (
	// To run SQLite so that it works well with our app, we configure:
	// - WAL Mode so that reads and writes don't block eachother.
	// - A busy timeout, specifying the duration a connection will wait for a lock.
	// - Foreign keys are enforced.
	// The write pool also uses immediate transactions, so that a transaction
	// that will write takes the write lock up front instead of failing on upgrade.
	writeOptions = "?mode=rwc&_foreign_keys=on&_journal_mode=wal&_busy_timeout=5000&_txlock=immediate"
	readOptions  = "?mode=ro&_foreign_keys=on&_journal_mode=wal&_busy_timeout=5000"
)

// OpenSQLite opens a pool of SQLite connections. Different settings
// are appropriate for reading and writing, so this function needs to know
// what the sql.DB will be used for.
//
// See this comment for more information:
// https://github.com/mattn/go-sqlite3/issues/1179#issuecomment-1638083995
func OpenSQLite(dbFile string, write bool) (*sql.DB, error) {
	optsPostfix := readOptions
	if write {
		optsPostfix = writeOptions
	}

	db, err := sql.Open("sqlite3", "file:"+dbFile+optsPostfix)
	if err != nil {
		return nil, err
	}

	if write {
		// use only a single connection for writing.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)

		// don't close this connection.
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
	}

	return db, nil
}

// Pools holds the read and write pools of a single database.
type Pools struct {
	Write *sql.DB
	Read  *sql.DB
}

// OpenPools opens a write and a read pool for dbFile.
// The write pool is opened first so that the file is created if needed.
func OpenPools(dbFile string) (Pools, error) {
	w, err := OpenSQLite(dbFile, true)
	if err != nil {
		return Pools{}, err
	}

	// make sure the file exists before opening it read-only.
	err = w.Ping()
	if err != nil {
		_ = w.Close()
		return Pools{}, err
	}

	r, err := OpenSQLite(dbFile, false)
	if err != nil {
		_ = w.Close()
		return Pools{}, err
	}

	return Pools{Write: w, Read: r}, nil
}

// Close closes both pools.
func (p Pools) Close() error {
	rErr := p.Read.Close()
	wErr := p.Write.Close()
	if wErr != nil {
		return wErr
	}
	return rErr
}
