package dbwire_test

import (
	"context"
	"errors"
	"fmt"

	"github.com/dbwire/dbwire.go"
	"github.com/dbwire/dbwire.go/internal/fakedb"
	"github.com/dbwire/dbwire.go/pkg/connection"
	"github.com/dbwire/dbwire.go/pkg/rpcdb"
)

// Example_transact runs a function inside a transaction: committed when
// it succeeds, rolled back when it fails.
func Example_transact() {
	srv := fakedb.NewServer("127.0.0.1:0")
	if err := srv.Start(); err != nil {
		panic(err)
	}
	defer srv.Stop()

	ctx := context.Background()

	conn, err := dbwire.Connect(ctx, "ws://"+srv.Address())
	if err != nil {
		panic(err)
	}
	defer conn.Close(ctx)

	db := conn.(*rpcdb.Conn)

	// The write inside this transaction survives: the function returns
	// nil, so Transact commits.
	_, err = connection.Transact(ctx, db, func(ctx context.Context, tx connection.Tx) (struct{}, error) {
		_, err := db.Do(ctx, "kv.set", "balance", 100)
		return struct{}{}, err
	})
	if err != nil {
		panic(err)
	}

	// This one is rolled back: the function's error aborts the
	// transaction and comes back unchanged.
	_, err = connection.Transact(ctx, db, func(ctx context.Context, tx connection.Tx) (struct{}, error) {
		if _, err := db.Do(ctx, "kv.set", "balance", 0); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, errors.New("changed my mind")
	})
	fmt.Println("second transaction:", err)

	raw, err := db.Do(ctx, "kv.get", "balance")
	if err != nil {
		panic(err)
	}
	var balance int
	if err := db.Unmarshaler().Unmarshal(raw, &balance); err != nil {
		panic(err)
	}
	fmt.Println("balance:", balance)

	// Output:
	// second transaction: changed my mind
	// balance: 100
}
