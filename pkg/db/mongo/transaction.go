package mongo

import (
	"context"
	"errors"
	"fmt"

	apperrors "gotour/pkg/errors"
	"gotour/pkg/logger"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

// Server error code for "Transaction numbers are only allowed on a replica
// set member or mongos".
const codeIllegalOperation = 20

type TransactionFunc func(ctx mongo.SessionContext) error

type TransactionManager interface {
	ExecuteTransaction(ctx context.Context, fn TransactionFunc) error
}

type mongoTransactionManager struct {
	client *mongo.Client
	log    *logger.Logger
}

func NewTransactionManager(client *mongo.Client, log *logger.Logger) TransactionManager {
	return &mongoTransactionManager{
		client: client,
		log:    log,
	}
}

// TransactionOptions commits with majority write concern and reads from the
// primary, so a synthesized flight and its booking become visible together.
func TransactionOptions() *options.TransactionOptions {
	return options.Transaction().
		SetWriteConcern(writeconcern.Majority()).
		SetReadPreference(readpref.Primary())
}

// ExecuteTransaction runs fn inside a transaction. On a standalone server,
// which rejects transactions before any write is applied, fn runs again
// without one.
func (m *mongoTransactionManager) ExecuteTransaction(ctx context.Context, fn TransactionFunc) error {
	session, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (any, error) {
		return nil, fn(sessCtx)
	}, TransactionOptions())
	if err == nil {
		return nil
	}

	if TransactionsUnsupported(err) {
		m.log.Warn("Transactions unsupported by this deployment, writing without one", "error", err)
		return fn(mongo.NewSessionContext(ctx, nil))
	}
	if apperrors.IsAppError(err) {
		return err
	}
	return fmt.Errorf("transaction failed: %w", err)
}

// TransactionsUnsupported reports whether err came from a server that cannot
// run multi-document transactions.
func TransactionsUnsupported(err error) bool {
	var serverErr mongo.ServerError
	return errors.As(err, &serverErr) && serverErr.HasErrorCode(codeIllegalOperation)
}
