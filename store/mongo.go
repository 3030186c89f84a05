package store

import (
	"context"
	"regexp"
	"time"

	"bvstock/models"
	"bvstock/utils"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const opTimeout = 10 * time.Second

var newestFirst = bson.D{{Key: "created_at", Value: -1}}

type Mongo struct {
	client       *mongo.Client
	stock        *mongo.Collection
	distributors *mongo.Collection
	sales        *mongo.Collection
	users        *mongo.Collection
	sessions     *mongo.Collection
	transactions bool
}

// NewMongo binds the store to dbName. With transactions off (standalone
// servers) WithTx degrades to running fn directly and atomicity rests on the
// guarded writes plus the caller's compensation.
func NewMongo(client *mongo.Client, dbName string, transactions bool) *Mongo {
	db := client.Database(dbName)
	return &Mongo{
		client:       client,
		stock:        db.Collection("stock"),
		distributors: db.Collection("distributors"),
		sales:        db.Collection("sales"),
		users:        db.Collection("users"),
		sessions:     db.Collection("sessions"),
		transactions: transactions,
	}
}

func (m *Mongo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if !m.transactions || mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}
	sess, err := m.client.StartSession()
	if err != nil {
		return errors.Wrap(err, "start session")
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	unique := func(field string) mongo.IndexModel {
		return mongo.IndexModel{Keys: bson.D{{Key: field, Value: 1}}, Options: options.Index().SetUnique(true)}
	}
	created := mongo.IndexModel{Keys: newestFirst}

	if _, err := m.stock.Indexes().CreateMany(ctx, []mongo.IndexModel{unique("name"), created}); err != nil {
		return errors.Wrap(err, "stock indexes")
	}
	if _, err := m.distributors.Indexes().CreateMany(ctx, []mongo.IndexModel{unique("name"), created}); err != nil {
		return errors.Wrap(err, "distributor indexes")
	}
	if _, err := m.sales.Indexes().CreateMany(ctx, []mongo.IndexModel{
		created,
		{Keys: bson.D{{Key: "distributor", Value: 1}}},
	}); err != nil {
		return errors.Wrap(err, "sale indexes")
	}
	if _, err := m.users.Indexes().CreateOne(ctx, unique("username")); err != nil {
		return errors.Wrap(err, "user indexes")
	}
	return nil
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter interface{}, opts *options.FindOptions) ([]T, error) {
	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := []T{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func findOne[T any](ctx context.Context, coll *mongo.Collection, filter interface{}, entity string) (*T, error) {
	var doc T
	err := coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.NotFound(entity)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "find %s", entity)
	}
	return &doc, nil
}

// --- stock ---

func (m *Mongo) CreateStock(ctx context.Context, item *models.StockItem) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	item.ID = primitive.NewObjectID()
	item.Version = 1
	item.CreatedAt = time.Now().UTC()
	item.UpdatedAt = item.CreatedAt
	if _, err := m.stock.InsertOne(ctx, item); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.Invalid("Stock item already exists")
		}
		return errors.Wrap(err, "insert stock")
	}
	return nil
}

func (m *Mongo) ListStock(ctx context.Context, search string) ([]models.StockItem, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	filter := bson.M{}
	if search != "" {
		filter["name"] = primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
	}
	items, err := findAll[models.StockItem](ctx, m.stock, filter, options.Find().SetSort(newestFirst))
	return items, errors.Wrap(err, "list stock")
}

func (m *Mongo) GetStock(ctx context.Context, id primitive.ObjectID) (*models.StockItem, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return findOne[models.StockItem](ctx, m.stock, bson.M{"_id": id}, "Stock")
}

func (m *Mongo) FindStockByName(ctx context.Context, name string) (*models.StockItem, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return findOne[models.StockItem](ctx, m.stock, bson.M{"name": name}, "Product")
}

func (m *Mongo) UpdateStock(ctx context.Context, id primitive.ObjectID, upd models.StockUpdate) (*models.StockItem, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Name != nil {
		set["name"] = *upd.Name
	}
	if upd.Quantity != nil {
		set["quantity"] = *upd.Quantity
	}
	if upd.BV != nil {
		set["bv"] = *upd.BV
	}
	filter := bson.M{"_id": id}
	if upd.Version != nil {
		filter["version"] = *upd.Version
	}

	var item models.StockItem
	err := m.stock.FindOneAndUpdate(ctx, filter,
		bson.M{"$set": set, "$inc": bson.M{"version": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&item)
	switch {
	case err == nil:
		return &item, nil
	case mongo.IsDuplicateKeyError(err):
		return nil, models.Invalid("Stock item already exists")
	case errors.Is(err, mongo.ErrNoDocuments):
		if _, gerr := m.GetStock(ctx, id); gerr != nil {
			return nil, gerr
		}
		return nil, models.ErrConflict
	default:
		return nil, errors.Wrap(err, "update stock")
	}
}

func (m *Mongo) DeleteStock(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := m.stock.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrap(err, "delete stock")
	}
	if res.DeletedCount == 0 {
		return models.NotFound("Stock")
	}
	return nil
}

// AdjustStock applies delta with a filter that only matches while the
// result stays non-negative, so concurrent decrements cannot oversell.
func (m *Mongo) AdjustStock(ctx context.Context, id primitive.ObjectID, delta int) (*models.StockItem, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	filter := bson.M{"_id": id}
	if delta < 0 {
		filter["quantity"] = bson.M{"$gte": -delta}
	}
	update := bson.M{
		"$inc": bson.M{"quantity": delta, "version": 1},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}

	var item models.StockItem
	err := m.stock.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&item)
	if errors.Is(err, mongo.ErrNoDocuments) {
		cur, gerr := m.GetStock(ctx, id)
		if gerr != nil {
			return nil, gerr
		}
		return nil, &models.InsufficientStockError{Product: cur.Name, Available: cur.Quantity, Requested: -delta}
	}
	if err != nil {
		return nil, errors.Wrap(err, "adjust stock")
	}
	return &item, nil
}

func (m *Mongo) RestockByName(ctx context.Context, name string, qty int, bv *float64) (*models.StockItem, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	set := bson.M{"updated_at": time.Now().UTC()}
	if bv != nil {
		set["bv"] = *bv
	}
	update := bson.M{"$inc": bson.M{"quantity": qty, "version": 1}, "$set": set}

	// Exact name first, then the oldest case-insensitive match.
	filters := []bson.M{
		{"name": name},
		{"name": primitive.Regex{Pattern: "^" + regexp.QuoteMeta(name) + "$", Options: "i"}},
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

	var item models.StockItem
	for _, filter := range filters {
		err := m.stock.FindOneAndUpdate(ctx, filter, update, opts).Decode(&item)
		if err == nil {
			return &item, false, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, false, errors.Wrap(err, "restock")
		}
	}

	item = models.StockItem{Name: name, Quantity: qty}
	if bv != nil {
		item.BV = *bv
	}
	if err := m.CreateStock(ctx, &item); err != nil {
		return nil, false, err
	}
	return &item, true, nil
}

func (m *Mongo) SetStockPhoto(ctx context.Context, id primitive.ObjectID, url, previewURL string) (*models.StockItem, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var item models.StockItem
	err := m.stock.FindOneAndUpdate(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"photo_url": url, "photo_preview_url": previewURL, "updated_at": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&item)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.NotFound("Stock")
	}
	if err != nil {
		return nil, errors.Wrap(err, "set stock photo")
	}
	return &item, nil
}

func (m *Mongo) LowStock(ctx context.Context, threshold int) ([]models.StockItem, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "quantity", Value: 1}, {Key: "name", Value: 1}})
	items, err := findAll[models.StockItem](ctx, m.stock, bson.M{"quantity": bson.M{"$lt": threshold}}, opts)
	return items, errors.Wrap(err, "low stock")
}

// --- distributors ---

func (m *Mongo) CreateDistributor(ctx context.Context, d *models.Distributor) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	d.ID = primitive.NewObjectID()
	d.CreatedAt = time.Now().UTC()
	d.UpdatedAt = d.CreatedAt
	if _, err := m.distributors.InsertOne(ctx, d); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.Invalid("Distributor with this name already exists")
		}
		return errors.Wrap(err, "insert distributor")
	}
	return nil
}

func (m *Mongo) ListDistributors(ctx context.Context) ([]models.Distributor, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	out, err := findAll[models.Distributor](ctx, m.distributors, bson.M{}, options.Find().SetSort(newestFirst))
	return out, errors.Wrap(err, "list distributors")
}

func (m *Mongo) GetDistributor(ctx context.Context, id primitive.ObjectID) (*models.Distributor, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return findOne[models.Distributor](ctx, m.distributors, bson.M{"_id": id}, "Distributor")
}

func (m *Mongo) UpdateDistributor(ctx context.Context, id primitive.ObjectID, upd models.DistributorUpdate) (*models.Distributor, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	set := bson.M{"updated_at": time.Now().UTC()}
	for field, v := range map[string]*string{
		"name":        upd.Name,
		"dob":         upd.DOB,
		"dor":         upd.DOR,
		"phone":       upd.Phone,
		"gender":      upd.Gender,
		"id_number":   upd.IDNumber,
		"nationality": upd.Nationality,
	} {
		if v != nil {
			set[field] = *v
		}
	}

	var d models.Distributor
	err := m.distributors.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&d)
	switch {
	case err == nil:
		return &d, nil
	case mongo.IsDuplicateKeyError(err):
		return nil, models.Invalid("Distributor with this name already exists")
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil, models.NotFound("Distributor")
	default:
		return nil, errors.Wrap(err, "update distributor")
	}
}

func (m *Mongo) DeleteDistributor(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := m.distributors.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrap(err, "delete distributor")
	}
	if res.DeletedCount == 0 {
		return models.NotFound("Distributor")
	}
	return nil
}

// --- sales ---

func (m *Mongo) CreateSale(ctx context.Context, s *models.Sale) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	s.ID = primitive.NewObjectID()
	s.CreatedAt = time.Now().UTC()
	s.UpdatedAt = s.CreatedAt
	_, err := m.sales.InsertOne(ctx, s)
	return errors.Wrap(err, "insert sale")
}

func (m *Mongo) GetSale(ctx context.Context, id primitive.ObjectID) (*models.Sale, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return findOne[models.Sale](ctx, m.sales, bson.M{"_id": id}, "Sale")
}

func (m *Mongo) ReplaceSale(ctx context.Context, s *models.Sale) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	s.UpdatedAt = time.Now().UTC()
	res, err := m.sales.UpdateOne(ctx, bson.M{"_id": s.ID}, bson.M{"$set": bson.M{
		"distributor": s.Distributor,
		"product":     s.Product,
		"stock_id":    s.StockID,
		"quantity":    s.Quantity,
		"bv":          s.BV,
		"total_bv":    s.TotalBV,
		"updated_at":  s.UpdatedAt,
	}})
	if err != nil {
		return errors.Wrap(err, "replace sale")
	}
	if res.MatchedCount == 0 {
		return models.NotFound("Sale")
	}
	return nil
}

func (m *Mongo) DeleteSale(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := m.sales.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrap(err, "delete sale")
	}
	if res.DeletedCount == 0 {
		return models.NotFound("Sale")
	}
	return nil
}

type saleRow struct {
	models.Sale    `bson:",inline"`
	DistributorDoc *models.DistributorRef `bson:"distributor_doc,omitempty"`
}

func (m *Mongo) ListSales(ctx context.Context) ([]models.SaleView, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$sort", Value: newestFirst}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: m.distributors.Name()},
			{Key: "localField", Value: "distributor"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "distributor_doc"},
		}}},
		{{Key: "$unwind", Value: bson.D{
			{Key: "path", Value: "$distributor_doc"},
			{Key: "preserveNullAndEmptyArrays", Value: true},
		}}},
	}
	cursor, err := m.sales.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, errors.Wrap(err, "list sales")
	}
	defer cursor.Close(ctx)

	var rows []saleRow
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, errors.Wrap(err, "decode sales")
	}
	out := make([]models.SaleView, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.NewSaleView(r.Sale, r.DistributorDoc))
	}
	return out, nil
}

// --- users ---

func (m *Mongo) CreateUser(ctx context.Context, u *models.User) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	u.ID = primitive.NewObjectID()
	u.CreatedAt = time.Now().UTC()
	if _, err := m.users.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.Invalid("Username already taken")
		}
		return errors.Wrap(err, "insert user")
	}
	return nil
}

func (m *Mongo) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return findOne[models.User](ctx, m.users, bson.M{"username": username}, "User")
}

func (m *Mongo) GetUser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return findOne[models.User](ctx, m.users, bson.M{"_id": id}, "User")
}

func (m *Mongo) ListUsers(ctx context.Context) ([]models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	out, err := findAll[models.User](ctx, m.users, bson.M{}, options.Find().SetSort(newestFirst))
	return out, errors.Wrap(err, "list users")
}

func (m *Mongo) CountUsers(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	n, err := m.users.CountDocuments(ctx, bson.M{})
	return n, errors.Wrap(err, "count users")
}

func (m *Mongo) RecordSession(ctx context.Context, s *models.Session) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	s.ID = primitive.NewObjectID()
	_, err := m.sessions.InsertOne(ctx, s)
	return errors.Wrap(err, "insert session")
}

func (m *Mongo) Summary(ctx context.Context) (*models.Summary, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	sum := &models.Summary{}

	var stockAgg []struct {
		Items int64 `bson:"items"`
		Units int64 `bson:"units"`
	}
	if err := aggregate(ctx, m.stock, bson.D{
		{Key: "_id", Value: nil},
		{Key: "items", Value: bson.D{{Key: "$sum", Value: 1}}},
		{Key: "units", Value: bson.D{{Key: "$sum", Value: "$quantity"}}},
	}, &stockAgg); err != nil {
		return nil, errors.Wrap(err, "summarise stock")
	}
	if len(stockAgg) > 0 {
		sum.StockItems = stockAgg[0].Items
		sum.StockUnits = stockAgg[0].Units
	}

	var salesAgg []struct {
		Count   int64   `bson:"count"`
		TotalBV float64 `bson:"total_bv"`
	}
	if err := aggregate(ctx, m.sales, bson.D{
		{Key: "_id", Value: nil},
		{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		{Key: "total_bv", Value: bson.D{{Key: "$sum", Value: "$total_bv"}}},
	}, &salesAgg); err != nil {
		return nil, errors.Wrap(err, "summarise sales")
	}
	if len(salesAgg) > 0 {
		sum.Sales = salesAgg[0].Count
		sum.TotalBV = utils.SumBV(salesAgg[0].TotalBV)
	}

	n, err := m.distributors.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, errors.Wrap(err, "count distributors")
	}
	sum.Distributors = n
	return sum, nil
}

func aggregate(ctx context.Context, coll *mongo.Collection, group bson.D, out interface{}) error {
	cursor, err := coll.Aggregate(ctx, mongo.Pipeline{{{Key: "$group", Value: group}}})
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)
	return cursor.All(ctx, out)
}
