package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"gitlab.com/dirk.krummacker/central-contacts/pkg/model"
)

// MySQLStore keeps contacts in the 'contacts' table of a MySQL database. The id column is an
// AUTO_INCREMENT primary key, so sorting by id yields the insertion order.
type MySQLStore struct {
	db *sqlx.DB

	// insert is a prepared statement for creating a contact on the database.
	insert *sqlx.NamedStmt

	// selectAll is a prepared statement for selecting all contacts.
	selectAll *sqlx.Stmt
}

var _ ContactStore = (*MySQLStore)(nil)

// OpenMySQL opens a connection pool to the database described by the driver config.
func OpenMySQL(cfg *mysql.Config) (*sql.DB, error) {
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("mysql connector: %w", err)
	}
	return sql.OpenDB(connector), nil
}

// NewMySQLStore wraps the sql database with sqlx and prepares all statements. The database
// argument can be a real database for production use or a mock database within unit tests.
func NewMySQLStore(sqlDB *sql.DB) (*MySQLStore, error) {
	db := sqlx.NewDb(sqlDB, "mysql")
	insert, err := db.PrepareNamed(`
		INSERT INTO contacts (name, phone, email)
		VALUES (:name, :phone, :email)
	`)
	if err != nil {
		return nil, fmt.Errorf("prepare insert: %w", err)
	}
	selectAll, err := db.Preparex(`
		SELECT id, name, phone, email FROM contacts ORDER BY id
	`)
	if err != nil {
		insert.Close()
		return nil, fmt.Errorf("prepare select: %w", err)
	}
	return &MySQLStore{db: db, insert: insert, selectAll: selectAll}, nil
}

func (s *MySQLStore) ListAll(ctx context.Context) ([]model.Contact, error) {
	contacts := make([]model.Contact, 0)
	if err := s.selectAll.SelectContext(ctx, &contacts); err != nil {
		return nil, fmt.Errorf("%w: select contacts: %w", ErrStorageUnavailable, err)
	}
	return contacts, nil
}

// Add inserts the contact and returns it with the id generated by the database. If the id cannot be
// read back then the row is already written, so the error is logged by the caller and the contact
// appears in the next ListAll.
func (s *MySQLStore) Add(ctx context.Context, candidate model.Contact) (model.Contact, error) {
	result, err := s.insert.ExecContext(ctx, &candidate)
	if err != nil {
		return model.Contact{}, fmt.Errorf("%w: insert contact: %w", ErrStorageUnavailable, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return model.Contact{}, fmt.Errorf("%w: contact stored but last insert id unknown: %w", ErrStorageUnavailable, err)
	}
	candidate.Id = id
	return candidate, nil
}

// Ping checks that the database is reachable.
func (s *MySQLStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: ping: %w", ErrStorageUnavailable, err)
	}
	return nil
}

// Close releases the prepared statements and the connection pool.
func (s *MySQLStore) Close() error {
	s.insert.Close()
	s.selectAll.Close()
	return s.db.Close()
}
