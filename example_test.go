package feedloader_test

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.nownabe.dev/feedloader"
)

func Example() {
	cfg := feedloader.DefaultConfig()
	cfg.Endpoint = "https://fakestoreapi.com/products"
	cfg.Project = os.Getenv("BIGQUERY_PROJECT_ID")
	cfg.Dataset = os.Getenv("BIGQUERY_DATASET_ID")
	cfg.Table = os.Getenv("BIGQUERY_TABLE_ID")
	cfg.SlackToken = os.Getenv("SLACK_TOKEN")
	cfg.SlackChannel = os.Getenv("SLACK_CHANNEL")

	p, err := feedloader.New(cfg, feedloader.WithLogLevel("debug"))
	if err != nil {
		panic(err)
	}
	defer p.Close()

	res, err := p.Run(context.Background(), time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed at %s: %v\n", res.Stage, res.Error)
		os.Exit(1)
	}

	fmt.Println(res.RowsLoaded)
}

func ExampleWithSchema() {
	schema := feedloader.Schema{
		{Name: "id", Path: []string{"id"}, Type: feedloader.Integer},
		{Name: "email", Path: []string{"email"}, Type: feedloader.String},
		{Name: "city", Path: []string{"address", "city"}, Type: feedloader.String},
		{Name: "lat", Path: []string{"address", "geolocation", "lat"}, Type: feedloader.Float},
	}

	cfg := feedloader.DefaultConfig()
	cfg.Name = "users"
	cfg.Endpoint = "https://fakestoreapi.com/users"
	cfg.FilePrefix = "users_data"
	cfg.Dataset = "fakestore"
	cfg.Table = "users"
	cfg.StagingBucket = os.Getenv("STAGING_BUCKET")

	p, err := feedloader.New(cfg, feedloader.WithSchema(schema), feedloader.WithPrettyLogging())
	if err != nil {
		panic(err)
	}
	defer p.Close()

	if _, err := p.Run(context.Background(), time.Now()); err != nil {
		panic(err)
	}
}

func ExampleSchema_ExtractRow() {
	doc, err := feedloader.JSONParser()(context.Background(), strings.NewReader(
		`[{"id":1,"title":"T","description":"D","category":"C","rating":{"rate":4.5,"count":10}}]`,
	))
	if err != nil {
		panic(err)
	}

	row, err := feedloader.ProductSchema.ExtractRow(doc[0])
	if err != nil {
		panic(err)
	}

	fmt.Println(strings.Join(feedloader.ProductSchema.Header(), ","))
	fmt.Println(strings.Join(row, ","))
	// Output:
	// id,title,description,category,rate,count
	// 1,T,D,C,4.5,10
}
