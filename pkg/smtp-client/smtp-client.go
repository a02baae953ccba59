package smtp_client

import (
	"crypto/tls"
	"errors"
	"log/slog"
	"net/smtp"
	"net/textproto"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/jordan-wright/email"
	"github.com/knadh/smtppool"
	"gopkg.in/yaml.v2"
)

type SmtpServerList struct {
	Servers []SmtpServer `yaml:"servers"`
	From    string       `yaml:"from"`
	Sender  string       `yaml:"sender"`
	ReplyTo []string     `yaml:"replyTo"`
}

type SmtpServer struct {
	Host               string `yaml:"host"`
	Port               string `yaml:"port"`
	Connections        int    `yaml:"connections"`
	InsecureSkipVerify bool   `yaml:"insecureSkipVerify"`
	AuthData           struct {
		Username string `yaml:"user"`
		Password string `yaml:"password"`
	} `yaml:"auth"`
	SendTimeout int `yaml:"sendTimeout"`
}

func (s *SmtpServer) Address() string {
	return s.Host + ":" + s.Port
}

func (sl *SmtpServerList) ReadFromFile(fname string) (err error) {
	yamlFile, err := os.ReadFile(fname)
	if err != nil {
		slog.Error("could not read server config file", slog.String("file", fname), slog.String("error", err.Error()))
		return err
	}
	err = yaml.UnmarshalStrict(yamlFile, &sl)
	return
}

// SmtpClients keeps one connection pool per configured server and rotates
// between them for outgoing mails. Callers send from goroutines, so the
// counter and the pool slice are guarded by mu.
type SmtpClients struct {
	servers        SmtpServerList
	connectionPool []*smtppool.Pool
	counter        int
	mu             sync.Mutex
}

func NewSmtpClients(config SmtpServerList) (*SmtpClients, error) {
	pools := initConnectionPool(config)
	if len(pools) < 1 {
		return nil, errors.New("no smtp server connection in the pool")
	}
	return &SmtpClients{
		servers:        config,
		connectionPool: pools,
	}, nil
}

func initConnectionPool(serverList SmtpServerList) []*smtppool.Pool {
	connectionPools := []*smtppool.Pool{}
	for _, server := range serverList.Servers {
		pool, err := connectToPool(server)
		if err != nil {
			slog.Error("error setting up connection pool", slog.String("error", err.Error()), slog.String("server", server.Address()))
			continue
		}
		connectionPools = append(connectionPools, pool)
	}
	return connectionPools
}

func smtpAuth(server SmtpServer) smtp.Auth {
	if server.AuthData.Username == "" && server.AuthData.Password == "" {
		return nil
	}
	return smtp.PlainAuth(
		"",
		server.AuthData.Username,
		server.AuthData.Password,
		server.Host,
	)
}

func connectToPool(server SmtpServer) (*smtppool.Pool, error) {
	auth := smtpAuth(server)

	tlsOpts := &tls.Config{
		InsecureSkipVerify: server.InsecureSkipVerify,
		ServerName:         server.Host,
	}
	port, err := strconv.Atoi(server.Port)
	if err != nil {
		return nil, err
	}

	return smtppool.New(smtppool.Opt{
		Host:            server.Host,
		Port:            port,
		MaxConns:        server.Connections,
		IdleTimeout:     time.Duration(server.SendTimeout) * time.Second,
		PoolWaitTimeout: time.Duration(server.SendTimeout) * time.Second,
		TLSConfig:       tlsOpts,
		Auth:            auth,
	})
}

// pickPool advances the rotation counter and returns the pool to use.
func (sc *SmtpClients) pickPool() (int, *smtppool.Pool, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	sc.counter += 1
	if len(sc.connectionPool) < 1 {
		sc.connectionPool = initConnectionPool(sc.servers)
		if len(sc.connectionPool) < 1 {
			return 0, nil, errors.New("no servers defined")
		}
	}

	index := sc.counter % len(sc.connectionPool)
	return index, sc.connectionPool[index], nil
}

func (sc *SmtpClients) replacePool(index int, pool *smtppool.Pool) {
	sc.mu.Lock()
	sc.connectionPool[index] = pool
	sc.mu.Unlock()
}

func (sc *SmtpClients) SendMail(
	to []string,
	subject string,
	htmlContent string,
) error {
	index, selectedServer, err := sc.pickPool()
	if err != nil {
		return err
	}
	server := sc.servers.Servers[index]

	e := smtppool.Email{
		To:      to,
		From:    sc.servers.From,
		Sender:  sc.servers.Sender,
		ReplyTo: sc.servers.ReplyTo,
		Subject: subject,
		HTML:    []byte(htmlContent),
		Headers: textproto.MIMEHeader{},
	}
	err = selectedServer.Send(e)
	if err != nil {
		// close and try to reconnect
		slog.Error("error when trying to send email", slog.String("error", err.Error()))

		pool, errReconnect := connectToPool(server)
		if errReconnect != nil {
			slog.Error("cannot reconnect pool", slog.String("error", errReconnect.Error()), slog.String("server", server.Host))
			return sc.sendDirect(server, to, subject, htmlContent)
		}
		sc.replacePool(index, pool)
	}
	return err
}

// sendDirect delivers a single mail outside the pool when the pool is gone
// and cannot be rebuilt.
func (sc *SmtpClients) sendDirect(
	server SmtpServer,
	to []string,
	subject string,
	htmlContent string,
) error {
	e := &email.Email{
		To:      to,
		From:    sc.servers.From,
		Sender:  sc.servers.Sender,
		ReplyTo: sc.servers.ReplyTo,
		Subject: subject,
		HTML:    []byte(htmlContent),
		Headers: textproto.MIMEHeader{},
	}
	err := e.Send(server.Address(), smtpAuth(server))
	if err != nil {
		slog.Error("direct send failed", slog.String("error", err.Error()), slog.String("server", server.Host))
	}
	return err
}
