package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gateserver/util/log"
)

var (
	ErrNoResult = errors.New("no result row")
)

type UserInfo struct {
	Uid   int    `json:"uid"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Pwd   string `json:"-"`
}

// MysqlDao runs the gate's persistence operations. Every call holds one
// pooled session for its whole duration and gives it back on every path.
type MysqlDao struct {
	pool *MysqlPool
}

func NewMysqlDao(p *MysqlPool) *MysqlDao {
	return &MysqlDao{pool: p}
}

func (d *MysqlDao) Pool() *MysqlPool {
	return d.pool
}

// RegUser registers through the reg_user stored procedure and returns its
// result code, or -1.
func (d *MysqlDao) RegUser(ctx context.Context, name, email, pwd string) (int, error) {
	con, err := d.pool.Acquire()
	if err != nil {
		return -1, err
	}
	defer d.pool.Release(con)
	sess := con.Conn

	if _, err := sess.ExecContext(ctx, "CALL reg_user(?,?,?,@result)", name, email, pwd); err != nil {
		return -1, fmt.Errorf("call reg_user: %w", err)
	}
	var result sql.NullInt64
	if err := sess.QueryRowContext(ctx, "SELECT @result AS result").Scan(&result); err != nil {
		return -1, fmt.Errorf("select @result: %w", err)
	}
	if !result.Valid {
		return -1, ErrNoResult
	}
	log.Infof("reg_user %s result %d", name, result.Int64)
	return int(result.Int64), nil
}

// RegUserTransaction inserts a new user under a fresh id taken from the
// user_id counter. It returns the new id, 0 when the email or name is
// already taken, or -1 on failure.
func (d *MysqlDao) RegUserTransaction(ctx context.Context, name, email, pwd string) (uid int, err error) {
	con, err := d.pool.Acquire()
	if err != nil {
		return -1, err
	}
	defer d.pool.Release(con)

	tx, err := con.Conn.BeginTx(ctx, nil)
	if err != nil {
		return -1, fmt.Errorf("begin: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	exists, err := rowExists(ctx, tx, "SELECT 1 FROM user WHERE email = ?", email)
	if err != nil {
		return -1, err
	}
	if exists {
		log.Infof("email %s exist", email)
		return 0, nil
	}

	exists, err = rowExists(ctx, tx, "SELECT 1 FROM user WHERE name = ?", name)
	if err != nil {
		return -1, err
	}
	if exists {
		log.Infof("name %s exist", name)
		return 0, nil
	}

	if _, err := tx.ExecContext(ctx, "UPDATE user_id SET id = id + 1"); err != nil {
		return -1, fmt.Errorf("update user_id: %w", err)
	}

	var newId int
	if err := tx.QueryRowContext(ctx, "SELECT id FROM user_id").Scan(&newId); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return -1, fmt.Errorf("select id from user_id: %w", ErrNoResult)
		}
		return -1, fmt.Errorf("select id from user_id: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "INSERT INTO user (uid, name, email, pwd) VALUES (?, ?, ?, ?)",
		newId, name, email, pwd); err != nil {
		return -1, fmt.Errorf("insert user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return -1, fmt.Errorf("commit: %w", err)
	}
	committed = true
	log.Infof("new user %s uid %d", name, newId)
	return newId, nil
}

func rowExists(ctx context.Context, tx *sql.Tx, query string, arg interface{}) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx, query, arg).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("%s: %w", query, err)
	}
	return true, nil
}

// CheckEmail reports whether name is registered with email.
func (d *MysqlDao) CheckEmail(ctx context.Context, name, email string) (bool, error) {
	con, err := d.pool.Acquire()
	if err != nil {
		return false, err
	}
	defer d.pool.Release(con)

	var dbEmail string
	err = con.Conn.QueryRowContext(ctx, "SELECT email FROM user WHERE name = ?", name).Scan(&dbEmail)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("select email: %w", err)
	}
	return email == dbEmail, nil
}

// UpdatePwd overwrites the password of name. A true result only means the
// statement ran; it may have matched no row.
func (d *MysqlDao) UpdatePwd(ctx context.Context, name, newpwd string) (bool, error) {
	con, err := d.pool.Acquire()
	if err != nil {
		return false, err
	}
	defer d.pool.Release(con)

	res, err := con.Conn.ExecContext(ctx, "UPDATE user SET pwd = ? WHERE name = ?", newpwd, name)
	if err != nil {
		return false, fmt.Errorf("update pwd: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		log.Infof("update pwd of %s, rows %d", name, n)
	}
	return true, nil
}

// CheckPwd looks the user up by name and compares the stored password as is.
// Passwords are kept in plain text by the store; see DESIGN.md.
func (d *MysqlDao) CheckPwd(ctx context.Context, name, pwd string) (UserInfo, bool, error) {
	var info UserInfo
	con, err := d.pool.Acquire()
	if err != nil {
		return info, false, err
	}
	defer d.pool.Release(con)

	var (
		uid                     int
		dbName, email, originPw string
		nick                    sql.NullString
	)
	err = con.Conn.QueryRowContext(ctx, "SELECT uid, name, email, pwd, nick FROM user WHERE name = ?", name).
		Scan(&uid, &dbName, &email, &originPw, &nick)
	if errors.Is(err, sql.ErrNoRows) {
		return info, false, nil
	}
	if err != nil {
		return info, false, fmt.Errorf("select user: %w", err)
	}
	if pwd != originPw {
		return info, false, nil
	}
	info = UserInfo{Uid: uid, Name: dbName, Email: email, Pwd: originPw}
	return info, true, nil
}

// TestProcedure calls test_procedure and reads back its two out variables.
func (d *MysqlDao) TestProcedure(ctx context.Context, email string) (uid int, name string, ok bool, err error) {
	con, err := d.pool.Acquire()
	if err != nil {
		return 0, "", false, err
	}
	defer d.pool.Release(con)
	sess := con.Conn

	if _, err = sess.ExecContext(ctx, "CALL test_procedure(?,@userId,@userName)", email); err != nil {
		return 0, "", false, fmt.Errorf("call test_procedure: %w", err)
	}
	var (
		dbUid  sql.NullInt64
		dbName sql.NullString
	)
	if err = sess.QueryRowContext(ctx, "SELECT @userId AS uid").Scan(&dbUid); err != nil {
		return 0, "", false, fmt.Errorf("select @userId: %w", err)
	}
	if err = sess.QueryRowContext(ctx, "SELECT @userName AS name").Scan(&dbName); err != nil {
		return 0, "", false, fmt.Errorf("select @userName: %w", err)
	}
	if !dbUid.Valid || !dbName.Valid {
		return 0, "", false, nil
	}
	return int(dbUid.Int64), dbName.String, true, nil
}
