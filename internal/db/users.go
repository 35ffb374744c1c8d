package db

import "context"

func (q *Queries) GetUser(ctx context.Context, userID string) (User, error) {
	row := q.db.QueryRow(ctx,
		`SELECT user_id, username, permission FROM users WHERE user_id = $1`, userID)
	var u User
	err := row.Scan(&u.UserID, &u.Username, &u.Permission)
	return u, err
}

func (q *Queries) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := q.db.Query(ctx,
		`SELECT user_id, username, permission FROM users ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.UserID, &u.Username, &u.Permission); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (q *Queries) CreateUser(ctx context.Context, user User) error {
	_, err := q.db.Exec(ctx,
		`INSERT INTO users (user_id, username, permission) VALUES ($1, $2, $3)`,
		user.UserID, user.Username, user.Permission)
	return err
}

func (q *Queries) UpdateUser(ctx context.Context, user User) (bool, error) {
	tag, err := q.db.Exec(ctx,
		`UPDATE users SET username = $2, permission = $3 WHERE user_id = $1`,
		user.UserID, user.Username, user.Permission)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (q *Queries) DeleteUser(ctx context.Context, userID string) (bool, error) {
	tag, err := q.db.Exec(ctx, `DELETE FROM users WHERE user_id = $1`, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
