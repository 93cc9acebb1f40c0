package database

import (
	"context"
	"fmt" // For error wrapping

	"daily_quote_mailer/internal/domain/user"

	"github.com/sirupsen/logrus"
)

// PostgresUserDirectory reads subscribers from the users table.
// A connection is acquired per ListActive call and released before it returns.
type PostgresUserDirectory struct {
	connect Connector
	logger  *logrus.Logger
}

func NewPostgresUserDirectory(connect Connector, logger *logrus.Logger) *PostgresUserDirectory {
	return &PostgresUserDirectory{connect: connect, logger: logger}
}

// ListActive returns active subscribers with the given frequency, in store order.
// Connection and query errors are logged and yield an empty slice.
func (d *PostgresUserDirectory) ListActive(ctx context.Context, frequency user.Frequency) []*user.User {
	users, err := d.queryActive(ctx, frequency)
	if err != nil {
		d.logger.WithField("frequency", frequency).Errorf("[FAILED] Error fetching users: %v", err)
		return []*user.User{}
	}
	d.logger.Infof("[SUCCESS] Retrieved %d active users with %s frequency", len(users), frequency)
	return users
}

func (d *PostgresUserDirectory) queryActive(ctx context.Context, frequency user.Frequency) ([]*user.User, error) {
	db, err := d.connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	query := `SELECT user_id, email, first_name, last_name, email_frequency
               FROM users
               WHERE subscription_status = 'active' AND email_frequency = $1`

	rows, err := db.QueryContext(ctx, query, string(frequency))
	if err != nil {
		return nil, fmt.Errorf("error listing active users: %w", err)
	}
	defer rows.Close()

	users := make([]*user.User, 0)
	for rows.Next() {
		u := &user.User{}
		if err := rows.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Frequency); err != nil {
			return nil, fmt.Errorf("error scanning active user: %w", err)
		}
		users = append(users, u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating active users: %w", err)
	}
	return users, nil
}
