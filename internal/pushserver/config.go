package pushserver

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// defaultHTTPPort はHTTPで待ち受ける場合のデフォルトポート。
	defaultHTTPPort = "3000"
	// defaultHTTPSPort はHTTPSで待ち受ける場合のデフォルトポート。
	defaultHTTPSPort = "3001"
)

// ErrMissingVAPIDKeys はVAPID鍵ペアが設定されていない場合のエラー。
var ErrMissingVAPIDKeys = errors.New("VAPID_PUBLIC_KEY と VAPID_PRIVATE_KEY が設定されていません")

// ErrCertificateNotFound はTLS証明書ファイルが見つからない場合のエラー。
var ErrCertificateNotFound = errors.New("TLS証明書が見つかりません")

// vapidGuidance はVAPID鍵が無い場合の対処方法。
const vapidGuidance = `鍵ペアを生成して環境変数（または .env）に設定してください:
  pushctl vapid
  VAPID_PUBLIC_KEY=<publicKey>
  VAPID_PRIVATE_KEY=<privateKey>`

// certGuidance は証明書が無い場合の対処方法。
const certGuidance = `mkcert でローカル証明書を生成してください:
  1. mkcert をインストール
  2. ローカルCAをインストール: mkcert -install
  3. 証明書を生成: mkcert localhost 127.0.0.1 <YOUR_IP> ::1
  4. TLS_CERT_FILE と TLS_KEY_FILE に生成されたファイルを指定
モバイル端末ではmkcertのCA証明書を信頼させる必要があります`

// Config はpushserverの設定。
type Config struct {
	// Host はリッスンするアドレス。
	Host string
	// Port はリッスンするポート。
	Port string
	// VAPIDPublicKey はVAPID公開鍵（base64url）。
	VAPIDPublicKey string
	// VAPIDPrivateKey はVAPID秘密鍵（base64url）。
	VAPIDPrivateKey string
	// VAPIDSubject は送信者の連絡先（mailto: またはURL）。
	VAPIDSubject string
	// TLSCertFile はTLS証明書ファイルのパス。
	TLSCertFile string
	// TLSKeyFile はTLS秘密鍵ファイルのパス。
	TLSKeyFile string
	// CORSOrigins は許可するオリジン。"*" は全許可。
	CORSOrigins []string
	// SendTimeout は1件の送信のタイムアウト。
	SendTimeout time.Duration
	// PushTTL はプッシュサービスがメッセージを保持する秒数。
	PushTTL int
	// Concurrency は同時送信数の上限。
	Concurrency int
	// EvictAfter は購読を削除するまでの恒久的失敗の連続回数。0なら削除しない。
	EvictAfter int
	// RetryAttempts は一時的失敗に対する再送回数。0なら再送しない。
	RetryAttempts int
	// RetryDelay は再送までの待ち時間。
	RetryDelay time.Duration
	// Verbose がtrueならレスポンスに詳細を含め、成功した送信もログに出す。
	Verbose bool
	// NotifyJWTSecret が設定されている場合、/notify と /trigger にトークンを要求する。
	NotifyJWTSecret string
	// TriggerInterval が0より大きい場合、定期的にファンアウトする。
	TriggerInterval time.Duration
	// TriggerTitle は定期通知のタイトル。
	TriggerTitle string
	// TriggerBody は定期通知の本文。
	TriggerBody string
	// HistoryDSN はイベント履歴のSQLite接続文字列。空ならインメモリ。
	HistoryDSN string
}

// LoadConfig は .env と環境変数から設定を読み込む。
// .env が存在しない場合は環境変数のみを使用する。
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf(".env の読み込みに失敗: %w", err)
	}
	return configFromEnv(os.LookupEnv)
}

// configFromEnv はlookupから設定を組み立てる。
func configFromEnv(lookup func(string) (string, bool)) (Config, error) {
	env := envReader{lookup: lookup}

	cfg := Config{
		Host:            env.str("HOST", "0.0.0.0"),
		VAPIDPublicKey:  env.str("VAPID_PUBLIC_KEY", ""),
		VAPIDPrivateKey: env.str("VAPID_PRIVATE_KEY", ""),
		VAPIDSubject:    env.str("VAPID_SUBJECT", "mailto:admin@example.com"),
		TLSCertFile:     env.str("TLS_CERT_FILE", ""),
		TLSKeyFile:      env.str("TLS_KEY_FILE", ""),
		CORSOrigins:     splitList(env.str("CORS_ORIGINS", "*")),
		SendTimeout:     env.duration("SEND_TIMEOUT", 10*time.Second),
		PushTTL:         env.int("PUSH_TTL", 60),
		Concurrency:     env.int("CONCURRENCY", 16),
		EvictAfter:      env.int("EVICT_AFTER", 0),
		RetryAttempts:   env.int("RETRY_ATTEMPTS", 0),
		RetryDelay:      env.duration("RETRY_DELAY", 500*time.Millisecond),
		Verbose:         env.bool("RESPONSE_VERBOSE", false),
		NotifyJWTSecret: env.str("NOTIFY_JWT_SECRET", ""),
		TriggerInterval: env.duration("TRIGGER_INTERVAL", 0),
		TriggerTitle:    env.str("TRIGGER_TITLE", "Scheduled Trigger"),
		TriggerBody:     env.str("TRIGGER_BODY", "This notification was sent on a schedule."),
		HistoryDSN:      env.str("HISTORY_DB", ""),
	}

	defaultPort := defaultHTTPPort
	if cfg.TLSEnabled() {
		defaultPort = defaultHTTPSPort
	}
	cfg.Port = env.str("PORT", defaultPort)

	if len(env.errs) > 0 {
		return Config{}, errors.Join(env.errs...)
	}
	return cfg, nil
}

// TLSEnabled はTLS証明書が設定されているかを返す。
func (c Config) TLSEnabled() bool {
	return c.TLSCertFile != "" || c.TLSKeyFile != ""
}

// AttemptTimeout は再送を含めてSendTimeoutに収まるよう、1回の送信に割り当てる時間を返す。
// 再送の待ち時間を差し引いた残りを試行回数で等分する。
func (c Config) AttemptTimeout() time.Duration {
	attempts := time.Duration(c.RetryAttempts + 1)
	budget := c.SendTimeout - time.Duration(c.RetryAttempts)*c.RetryDelay
	if budget <= 0 {
		budget = c.SendTimeout
	}
	return budget / attempts
}

// Validate は起動に必要な設定が揃っているかを検証する。
// 不足している場合は対処方法を含むエラーを返す。
func (c Config) Validate() error {
	if c.VAPIDPublicKey == "" || c.VAPIDPrivateKey == "" {
		return fmt.Errorf("%w\n%s", ErrMissingVAPIDKeys, vapidGuidance)
	}
	if c.VAPIDSubject == "" {
		return errors.New("VAPID_SUBJECT が空です（例: mailto:you@example.com）")
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("PORT が不正です: %q", c.Port)
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("CONCURRENCY は1以上を指定してください: %d", c.Concurrency)
	}
	if c.EvictAfter < 0 || c.RetryAttempts < 0 {
		return errors.New("EVICT_AFTER と RETRY_ATTEMPTS は0以上を指定してください")
	}
	if c.TriggerInterval < 0 {
		return fmt.Errorf("TRIGGER_INTERVAL が負の値です: %s", c.TriggerInterval)
	}
	if c.TLSEnabled() {
		if c.TLSCertFile == "" || c.TLSKeyFile == "" {
			return fmt.Errorf("%w: TLS_CERT_FILE と TLS_KEY_FILE の両方を指定してください\n%s", ErrCertificateNotFound, certGuidance)
		}
		for _, p := range []string{c.TLSCertFile, c.TLSKeyFile} {
			if _, err := os.Stat(p); err != nil {
				return fmt.Errorf("%w: %s\n%s", ErrCertificateNotFound, p, certGuidance)
			}
		}
	}
	return nil
}

// envReader は型付きで環境変数を読み込み、パースエラーを蓄積する。
type envReader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (r *envReader) str(key, def string) string {
	if v, ok := r.lookup(key); ok && v != "" {
		return v
	}
	return def
}

func (r *envReader) int(key string, def int) int {
	v, ok := r.lookup(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s の値が整数ではありません: %q", key, v))
		return def
	}
	return n
}

func (r *envReader) duration(key string, def time.Duration) time.Duration {
	v, ok := r.lookup(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s の値が期間として不正です: %q", key, v))
		return def
	}
	return d
}

func (r *envReader) bool(key string, def bool) bool {
	v, ok := r.lookup(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s の値が真偽値ではありません: %q", key, v))
		return def
	}
	return b
}

// splitList はカンマ区切りの文字列を空要素を除いて分割する。
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
