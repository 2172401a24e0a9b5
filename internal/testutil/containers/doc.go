// Package containers provides testcontainer management for the
// integration tests of the alert storage layer.
//
// Containers are managed from TestMain in the integration test package:
//
//	var mysqlContainer *containers.MySQLContainer
//
//	func TestMain(m *testing.M) {
//	    var err error
//	    mysqlContainer, err = containers.NewMySQLContainer(context.Background(), nil)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    code := m.Run()
//	    _ = mysqlContainer.Terminate(context.Background())
//	    os.Exit(code)
//	}
//
// Integration tests using this package build behind the "integration"
// tag:
//
//	go test -tags=integration ./...
package containers
