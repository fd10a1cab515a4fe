package mongo

import (
	"context"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func newMock(t *testing.T) *mtest.T {
	return mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
}

// directTx runs fn without a session. Mock deployments cannot start
// transactions; the statements inside fn are what the tests check.
func directTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newTestLedger(mt *mtest.T) *LedgerRepository {
	r := NewLedgerRepository(mt.DB)
	r.inTx = directTx
	return r
}

func updated(n int) bson.D {
	return mtest.CreateSuccessResponse(bson.E{Key: "n", Value: n}, bson.E{Key: "nModified", Value: n})
}

func counted(mt *mtest.T, coll string, n int) bson.D {
	ns := mt.DB.Name() + "." + coll
	if n == 0 {
		return mtest.CreateCursorResponse(0, ns, mtest.FirstBatch)
	}
	return mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "_id", Value: 1}, {Key: "n", Value: n}})
}

func noDocuments(mt *mtest.T, coll string) bson.D {
	return mtest.CreateCursorResponse(0, mt.DB.Name()+"."+coll, mtest.FirstBatch)
}

// nextCommand returns the next command the client sent, failing unless it
// is named name.
func nextCommand(mt *mtest.T, name string) bson.Raw {
	mt.Helper()
	evt := mt.GetStartedEvent()
	if evt == nil {
		mt.Fatalf("no %s command was sent", name)
	}
	if evt.CommandName != name {
		mt.Fatalf("command = %s, want %s", evt.CommandName, name)
	}
	return evt.Command
}

func expectNoMoreCommands(mt *mtest.T) {
	mt.Helper()
	if evt := mt.GetStartedEvent(); evt != nil {
		mt.Fatalf("unexpected %s command", evt.CommandName)
	}
}

// updateStatement decodes the single statement of an update command.
func updateStatement(mt *mtest.T, cmd bson.Raw) (filter, update bson.Raw) {
	mt.Helper()
	var body struct {
		Updates []struct {
			Q bson.Raw `bson:"q"`
			U bson.Raw `bson:"u"`
		} `bson:"updates"`
	}
	if err := bson.Unmarshal(cmd, &body); err != nil || len(body.Updates) != 1 {
		mt.Fatalf("decode update %s: %v", cmd, err)
	}
	return body.Updates[0].Q, body.Updates[0].U
}

// insertedDocument decodes the single document of an insert command.
func insertedDocument(mt *mtest.T, cmd bson.Raw) bson.Raw {
	mt.Helper()
	var body struct {
		Documents []bson.Raw `bson:"documents"`
	}
	if err := bson.Unmarshal(cmd, &body); err != nil || len(body.Documents) != 1 {
		mt.Fatalf("decode insert %s: %v", cmd, err)
	}
	return body.Documents[0]
}

func int64At(mt *mtest.T, doc bson.Raw, path ...string) int64 {
	mt.Helper()
	v, err := doc.LookupErr(path...)
	if err != nil {
		mt.Fatalf("%v missing from %s", path, doc)
	}
	n, ok := v.AsInt64OK()
	if !ok {
		mt.Fatalf("%v is %s, not a number", path, v.Type)
	}
	return n
}

func stringAt(mt *mtest.T, doc bson.Raw, path ...string) string {
	mt.Helper()
	v, err := doc.LookupErr(path...)
	if err != nil {
		mt.Fatalf("%v missing from %s", path, doc)
	}
	s, ok := v.StringValueOK()
	if !ok {
		mt.Fatalf("%v is %s, not a string", path, v.Type)
	}
	return s
}
