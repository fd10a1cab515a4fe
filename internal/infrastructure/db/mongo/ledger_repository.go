package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/linkloot/affiliate-api/internal/core/domain"
)

// LedgerRepository applies balance changes to users and appends the matching
// transaction document inside a single Mongo transaction. It requires a
// replica set or sharded deployment.
type LedgerRepository struct {
	inTx  txRunner
	users *mongo.Collection
	txs   *mongo.Collection
}

func NewLedgerRepository(db *mongo.Database) *LedgerRepository {
	return &LedgerRepository{
		inTx:  sessionTransactions(db.Client()),
		users: db.Collection(collectionUsers),
		txs:   db.Collection(collectionTransactions),
	}
}

type mongoTransaction struct {
	ID          primitive.ObjectID       `bson:"_id,omitempty"`
	UserID      string                   `bson:"userId"`
	Type        domain.TransactionType   `bson:"type"`
	Status      domain.TransactionStatus `bson:"status"`
	Points      int64                    `bson:"points"`
	PayoutID    string                   `bson:"gpayId,omitempty"`
	Reason      string                   `bson:"reason,omitempty"`
	Reference   string                   `bson:"reference,omitempty"`
	CreatedAt   time.Time                `bson:"createdAt"`
	CompletedAt *time.Time               `bson:"completedAt,omitempty"`
}

func toMongoTransaction(tx *domain.Transaction) mongoTransaction {
	return mongoTransaction{
		UserID:      tx.UserID,
		Type:        tx.Type,
		Status:      tx.Status,
		Points:      tx.Points,
		PayoutID:    tx.PayoutID,
		Reason:      tx.Reason,
		Reference:   tx.Reference,
		CreatedAt:   tx.CreatedAt.UTC(),
		CompletedAt: tx.CompletedAt,
	}
}

func (mt *mongoTransaction) toDomain() *domain.Transaction {
	out := &domain.Transaction{
		ID:        mt.ID.Hex(),
		UserID:    mt.UserID,
		Type:      mt.Type,
		Status:    mt.Status,
		Points:    mt.Points,
		PayoutID:  mt.PayoutID,
		Reason:    mt.Reason,
		Reference: mt.Reference,
		CreatedAt: mt.CreatedAt.UTC(),
	}
	if mt.CompletedAt != nil {
		at := mt.CompletedAt.UTC()
		out.CompletedAt = &at
	}
	return out
}

// MoveToPending performs the redemption write. The user update is
// conditional on availablePoints still equalling tx.Points, so two requests
// racing on the same balance cannot both succeed.
func (r *LedgerRepository) MoveToPending(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	uid, err := objectID(tx.UserID, domain.ErrUserNotFound)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := toMongoTransaction(tx)
	err = r.inTx(ctx, func(sc context.Context) error {
		res, err := r.users.UpdateOne(sc,
			bson.M{"_id": uid, "availablePoints": tx.Points},
			bson.M{
				"$set": bson.M{"availablePoints": int64(0), "gpayId": tx.PayoutID},
				"$inc": bson.M{"pendingPoints": tx.Points},
			},
		)
		if err != nil {
			return fmt.Errorf("move to pending: %w", err)
		}
		if res.MatchedCount == 0 {
			return r.missingOrChanged(sc, uid)
		}

		ins, err := r.txs.InsertOne(sc, doc)
		if err != nil {
			return fmt.Errorf("insert redemption: %w", err)
		}
		if oid, ok := ins.InsertedID.(primitive.ObjectID); ok {
			doc.ID = oid
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc.toDomain(), nil
}

// missingOrChanged tells a lost race apart from an unknown user.
func (r *LedgerRepository) missingOrChanged(ctx context.Context, uid primitive.ObjectID) error {
	n, err := r.users.CountDocuments(ctx, bson.M{"_id": uid})
	if err != nil {
		return fmt.Errorf("count user: %w", err)
	}
	if n == 0 {
		return domain.ErrUserNotFound
	}
	return domain.ErrBalanceChanged
}

// Credit increments availablePoints and appends an Earned transaction.
func (r *LedgerRepository) Credit(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	uid, err := objectID(tx.UserID, domain.ErrUserNotFound)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := toMongoTransaction(tx)
	err = r.inTx(ctx, func(sc context.Context) error {
		res, err := r.users.UpdateOne(sc,
			bson.M{"_id": uid},
			bson.M{"$inc": bson.M{"availablePoints": tx.Points}},
		)
		if err != nil {
			return fmt.Errorf("credit user: %w", err)
		}
		if res.MatchedCount == 0 {
			return domain.ErrUserNotFound
		}

		ins, err := r.txs.InsertOne(sc, doc)
		if err != nil {
			return fmt.Errorf("insert credit: %w", err)
		}
		if oid, ok := ins.InsertedID.(primitive.ObjectID); ok {
			doc.ID = oid
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc.toDomain(), nil
}

// Settle completes a pending redemption and releases its pending points.
func (r *LedgerRepository) Settle(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	tid, err := objectID(transactionID, domain.ErrTransactionNotFound)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var settled mongoTransaction
	err = r.inTx(ctx, func(sc context.Context) error {
		now := time.Now().UTC()
		err := r.txs.FindOneAndUpdate(sc,
			bson.M{"_id": tid, "type": domain.TxRedeemed, "status": domain.TxPendingApproval},
			bson.M{"$set": bson.M{"status": domain.TxCompleted, "completedAt": now}},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&settled)
		if err != nil {
			if !isNoDocuments(err) {
				return fmt.Errorf("settle transaction: %w", err)
			}
			n, cerr := r.txs.CountDocuments(sc, bson.M{"_id": tid})
			if cerr != nil {
				return fmt.Errorf("count transaction: %w", cerr)
			}
			if n == 0 {
				return domain.ErrTransactionNotFound
			}
			return domain.ErrNotPending
		}

		uid, err := objectID(settled.UserID, domain.ErrUserNotFound)
		if err != nil {
			return err
		}
		res, err := r.users.UpdateOne(sc,
			bson.M{"_id": uid, "pendingPoints": bson.M{"$gte": settled.Points}},
			bson.M{"$inc": bson.M{"pendingPoints": -settled.Points}},
		)
		if err != nil {
			return fmt.Errorf("release pending points: %w", err)
		}
		if res.MatchedCount == 0 {
			return domain.ErrBalanceChanged
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return settled.toDomain(), nil
}

// ListByUser returns the user's transactions ordered by createdAt descending.
func (r *LedgerRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := r.txs.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoTransaction
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode transactions: %w", err)
	}

	out := make([]*domain.Transaction, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toDomain())
	}
	return out, nil
}

// EnsureIndexes creates the history index on the transactions collection.
func (r *LedgerRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.txs.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	return err
}
