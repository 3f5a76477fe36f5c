package connector_test

import (
	"context"
	"fmt"
	"log"

	"github.com/DATA-DOG/go-sqlmock"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-agent/pkg/config"
	"github.com/ajitpratap0/nebula-agent/pkg/connector/registry"
	"github.com/ajitpratap0/nebula-agent/pkg/testutil"

	// Register the SQL reader
	_ "github.com/ajitpratap0/nebula-agent/pkg/connector/sources/sqlserver"
)

// Example demonstrates creating a reader from the registry and draining it.
func Example() {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		log.Fatal(err)
	}
	query := "SELECT id, name FROM customers"
	mock.ExpectPrepare(query).ExpectQuery().WillReturnRows(
		mock.NewRowsWithColumnDefinition(
			mock.NewColumn("id").OfType("INT", int64(0)),
			mock.NewColumn("name").OfType("NVARCHAR", ""),
		).
			AddRow(int64(1), "Ada").
			AddRow(int64(2), "Grace\r\nHopper"))
	mock.ExpectClose()

	reader, err := registry.CreateReader("sqlserver", query, registry.Dependencies{
		Provider: testutil.NewStubProvider(db),
		Logger:   zap.NewNop(),
	})
	if err != nil {
		log.Fatal(err)
	}
	defer reader.Destroy()

	profile := config.NewJobProfileFromMap(map[string]interface{}{
		"job.sqlserverJob.hostname": "db.internal",
		"job.sqlserverJob.port":     1433,
		"job.sqlserverJob.dbname":   "crm",
		"job.sql.separator":         ",",
	})
	if err := reader.Open(context.Background(), profile); err != nil {
		log.Fatal(err)
	}

	for !reader.IsFinished() {
		msg, err := reader.Read()
		if err != nil {
			log.Fatal(err)
		}
		if msg != nil {
			fmt.Println(string(msg.Body))
		}
	}

	// Output:
	// 1,Ada
	// 2,GraceHopper
}
