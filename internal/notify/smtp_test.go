package notify

import (
	"context"
	"gradewatch/internal/components/telemetry"
	"io"
	"log"
	"strconv"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupSmtpServer(t *testing.T) (host string, smtpPort, webPort int) {
	testcontainers.SkipIfProviderIsNotHealthy(t)

	// suppress logging
	testcontainers.Logger = log.New(io.Discard, "", 0)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute*2)
	defer cancel()

	container, err := testcontainers.GenericContainer(
		ctx,
		testcontainers.GenericContainerRequest{
			Started: true,
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "haravich/fake-smtp-server",
				ExposedPorts: []string{"1025/tcp", "1080/tcp"},
				WaitingFor:   wait.ForLog("smtp://0.0.0.0:1025"),
			},
		},
	)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		err := container.Terminate(context.Background())
		if err != nil {
			t.Fatal(err)
		}
	})

	host, err = container.Host(ctx)
	if err != nil {
		t.Fatal(err)
	}
	smtpMapped, err := container.MappedPort(ctx, "1025/tcp")
	if err != nil {
		t.Fatal(err)
	}
	webMapped, err := container.MappedPort(ctx, "1080/tcp")
	if err != nil {
		t.Fatal(err)
	}
	return host, smtpMapped.Int(), webMapped.Int()
}

func TestSMTPSend(t *testing.T) {
	host, smtpPort, webPort := setupSmtpServer(t)

	sender := NewSMTP(SmtpConfig{
		Server:       host,
		Port:         smtpPort,
		EmailAddress: "notifier@email.com",
		Password:     "default",
		SenderName:   "gradewatch",
	}, &telemetry.Recorder{})

	err := sender.Send(context.Background(), Email{
		To:      []string{"student@email.com"},
		Subject: "New grades posted",
		Html:    "<p>changed</p>",
	})
	require.NoError(t, err)

	res, err := resty.New().R().Get(
		"http://" + host + ":" + strconv.Itoa(webPort) + "/messages",
	)
	require.NoError(t, err)
	require.Contains(t, res.String(), "New grades posted")
}

func TestSMTPNoRecipients(t *testing.T) {
	sender := NewSMTP(SmtpConfig{Server: "localhost", Port: 25, EmailAddress: "a@b.c"}, &telemetry.Recorder{})
	err := sender.Send(context.Background(), Email{Subject: "x"})
	require.Error(t, err)
}
