/*

Package feedloader is a small batch ETL pipeline that fetches a JSON product
feed over HTTP, flattens it into a CSV artifact and loads the CSV into a
BigQuery table with an auto-detected schema.

Stages

A run is strictly sequential and aborts on the first failure:

	config     validate the settings before any request
	fetch      GET the endpoint, keep the body as xtracts/products_data_raw_<stamp>.json
	transform  apply the Schema to every record, in order
	write      xtracts/products_data_trans_<stamp>.csv with a header row
	archive    optional copy of both artifacts to Cloud Storage
	load       BigQuery load job: CSV, autodetect, create if needed, append

Each record of the feed looks like

	{"id":1,"title":"T","description":"D","category":"C","rating":{"rate":4.5,"count":10}}

and becomes the row

	1,T,D,C,4.5,10

under the header id,title,description,category,rate,count.
The nested rating object is flattened by the Column paths of ProductSchema.

Getting started

	package main

	import (
		"context"
		"os"
		"time"

		"go.nownabe.dev/feedloader"
	)

	func main() {
		cfg := feedloader.DefaultConfig()
		cfg.Endpoint = "https://fakestoreapi.com/products"
		cfg.Project = os.Getenv("BIGQUERY_PROJECT_ID")
		cfg.Dataset = "sales"
		cfg.Table = "Products"

		p, err := feedloader.New(cfg, feedloader.WithPrettyLogging())
		if err != nil {
			panic(err)
		}
		defer p.Close()

		if _, err := p.Run(context.Background(), time.Now()); err != nil {
			os.Exit(1)
		}
	}

*/
package feedloader
