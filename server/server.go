package main

/*
A local stand-in for the OpenRed collector. It accepts measurements in both
payload dialects and answers like the production service, which makes it
possible to exercise the uploader without touching real data.
*/

import (
	"context"
	"database/sql"
	"flag"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-sql-driver/mysql"
	"github.com/golang/glog"

	"github.com/hb9tf/radiacode/store"

	// Blind import support for sqlite3 used by the store package.
	_ "github.com/mattn/go-sqlite3"
)

var (
	listen         = flag.String("listen", ":8443", "")
	certFile       = flag.String("certFile", "", "Path of the file containing the certificate (including the chained intermediates and root) for the TLS connection.")
	keyFile        = flag.String("keyFile", "", "Path of the file containing the key for the TLS connection.")
	output         = flag.String("output", "sqlite", "Storage to use (one of: sqlite, mysql)")
	credentialFile = flag.String("credentialFile", "", "Path to the file containing the credential clients must present. Empty accepts any client.")

	// SQLite
	sqliteFile = flag.String("sqliteFile", "/tmp/openred", "File path of the sqlite DB file to use.")

	// MySQL
	mysqlServer       = flag.String("mysqlServer", "127.0.0.1:3306", "MySQL TCP server endpoint to connect to (IP/DNS and port).")
	mysqlUser         = flag.String("mysqlUser", "", "MySQL DB user.")
	mysqlPasswordFile = flag.String("mysqlPasswordFile", "", "Path to the file containing the password for the MySQL user.")
	mysqlDBName       = flag.String("mysqlDBName", "openred", "Name of the DB to use.")
)

const (
	collectEndpoint = "/api/measurements/"
)

type inserter interface {
	Insert(context.Context, store.Measurement) (string, error)
}

type Collector struct {
	store      inserter
	credential string
}

func (c *Collector) authorized(r *http.Request) bool {
	if c.credential == "" {
		return true
	}
	if r.Header.Get("X-CSRFTOKEN") == c.credential {
		return true
	}
	return r.Header.Get("Authorization") == "Bearer "+c.credential
}

func (c *Collector) collectHandler(ctx *gin.Context) {
	if !c.authorized(ctx.Request) {
		ctx.JSON(http.StatusForbidden, gin.H{"detail": "invalid credential"})
		return
	}
	m := store.Measurement{}
	if err := ctx.ShouldBindJSON(&m); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	id, err := c.store.Insert(ctx.Request.Context(), m)
	if err != nil {
		glog.Warningf("error storing measurement: %s\n", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"detail": "unable to store measurement"})
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"measurement_id": id})
}

func newRouter(c *Collector) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.POST(collectEndpoint, c.collectHandler)
	return r
}

func readSecret(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}

func main() {
	ctx := context.Background()
	// Set defaults for glog flags. Can be overridden via cmdline.
	flag.Set("logtostderr", "false")
	flag.Set("stderrthreshold", "WARNING")
	flag.Set("v", "1")
	// Parse flags globally.
	flag.Parse()

	credential, err := readSecret(*credentialFile)
	if err != nil {
		glog.Exitf("unable to read credential file %q: %s\n", *credentialFile, err)
	}

	// Storage setup
	s := &store.SQL{}
	switch strings.ToLower(*output) {
	case "sqlite":
		db, err := sql.Open(store.Sqlite, *sqliteFile)
		if err != nil {
			glog.Exitf("unable to open sqlite DB %q: %s", *sqliteFile, err)
		}
		s.DB, s.Driver = db, store.Sqlite
	case "mysql":
		pass, err := readSecret(*mysqlPasswordFile)
		if err != nil {
			glog.Exitf("unable to read MySQL password file %q: %s\n", *mysqlPasswordFile, err)
		}
		cfg := mysql.Config{
			User:                 *mysqlUser,
			Passwd:               pass,
			Net:                  "tcp",
			Addr:                 *mysqlServer,
			DBName:               *mysqlDBName,
			AllowNativePasswords: true,
		}
		db, err := sql.Open(store.MySQL, cfg.FormatDSN())
		if err != nil {
			glog.Exitf("unable to open MySQL DB %q: %s", *mysqlServer, err)
		}
		db.SetConnMaxLifetime(3 * time.Minute)
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		s.DB, s.Driver = db, store.MySQL
	default:
		glog.Exitf("%q is not a supported storage, pick one of: sqlite, mysql", *output)
	}
	defer s.DB.Close()
	if err := s.Init(ctx); err != nil {
		glog.Exit(err)
	}

	// Configure and run webserver.
	gin.SetMode(gin.ReleaseMode)
	server := &http.Server{
		Addr:    *listen,
		Handler: newRouter(&Collector{store: s, credential: credential}),
	}
	if *certFile != "" || *keyFile != "" {
		glog.Fatal(server.ListenAndServeTLS(*certFile, *keyFile))
	} else {
		glog.Infoln("Resorting to serving HTTP because there was no certificate and key defined.")
		glog.Fatal(server.ListenAndServe())
	}

	glog.Flush()
}
