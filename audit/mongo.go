package audit

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/alglobo-systems/coordinator/configs"
)

// MongoSink records decided transactions as one document per txn_id.
// Grounded on the teacher's storage.MongoDB: mongo.Connect + Ping on
// startup, one collection, upsert by id.
type MongoSink struct {
	client *mongo.Client
	txns   *mongo.Collection
}

type auditDoc struct {
	TxnID     uint32   `bson:"_id"`
	Phase     string   `bson:"phase"`
	Amounts   []uint32 `bson:"amounts"`
	DecidedAt int64    `bson:"decided_at_unix"`
}

func newMongoSink(uri string) (*MongoSink, error) {
	ctx := context.Background()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, err
	}
	return &MongoSink{
		client: client,
		txns:   client.Database("coordinator_audit").Collection("transactions"),
	}, nil
}

func (s *MongoSink) Record(ctx context.Context, e Entry) error {
	doc := auditDoc{TxnID: e.TxnID, Phase: e.Phase.String(), Amounts: e.Amounts, DecidedAt: e.DecidedAt.Unix()}
	opts := options.Replace().SetUpsert(true)
	_, err := s.txns.ReplaceOne(ctx, bson.M{"_id": e.TxnID}, doc, opts)
	if err != nil {
		configs.DPrintf("audit/mongo: upsert failed: %v", err)
	}
	return err
}

func (s *MongoSink) Close() error {
	return s.client.Disconnect(context.Background())
}
