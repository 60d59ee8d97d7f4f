// Package errors はgosurv全体のエラーハンドリングと警告システムを提供します。
// scikit-learnの警告・例外システムにならい、生存時間モデル固有のエラー情報を構造化して返します。
package errors

import (
	"fmt"
	"os"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	グローバル警告ハンドリング
//
// ===========================================================================
var (
	warningMutex sync.Mutex
	// 利用者が設定した警告ハンドラ。設定されていればログより優先されます。
	warningHandler func(w error)
	// ログへの出力関数（循環importを避けるためpkg/logから注入）
	zerologWarnFunc = defaultWarnFunc(zerolog.New(os.Stderr).With().Timestamp().Logger())
)

// defaultWarnFunc はpkg/logが初期化される前に使われる構造化出力です。
func defaultWarnFunc(l zerolog.Logger) func(error) {
	return func(w error) {
		ev := l.Warn().Str("error.type", fmt.Sprintf("%T", w))
		if m, ok := w.(zerolog.LogObjectMarshaler); ok {
			ev = ev.Object("warning", m)
		}
		ev.Msg(w.Error())
	}
}

// SetWarningHandler は警告ハンドラを設定します。
// ハンドラが設定されている間、警告はログに出力されずハンドラだけに渡されます。
// nilを渡すとログ出力に戻ります。
//
// 例:
//
//	errors.SetWarningHandler(func(w error) {
//	    // 警告を無視する
//	})
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc はログ出力関数を設定します（循環importを避けるため）。
// nilを渡すと標準エラー出力へのzerologに戻ります。
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	if warnFunc == nil {
		warnFunc = defaultWarnFunc(zerolog.New(os.Stderr).With().Timestamp().Logger())
	}
	zerologWarnFunc = warnFunc
}

// Warn は警告を一度だけ発生させます。
// ハンドラが設定されていればハンドラへ、そうでなければログへ渡します。
func Warn(w error) {
	if Intercept(w) {
		return
	}
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc(w)
}

// Intercept は利用者のハンドラが設定されていればwを渡してtrueを返します。
// 独自のロガーで警告を記録する呼び出し側は、falseのときだけ記録します。
func Intercept(w error) bool {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	if warningHandler == nil {
		return false
	}
	warningHandler(w)
	return true
}

// ===========================================================================
//
//	警告型
//
// ===========================================================================

// ConvergenceWarning は最適化アルゴリズムが収束しなかった場合に発生する警告です。
type ConvergenceWarning struct {
	Algorithm  string
	Iterations int
	Message    string
}

func (w *ConvergenceWarning) Error() string {
	if w.Message != "" {
		return fmt.Sprintf("%s failed to converge after %d iterations: %s", w.Algorithm, w.Iterations, w.Message)
	}
	return fmt.Sprintf("%s failed to converge after %d iterations. Consider increasing max_iter or adjusting parameters.", w.Algorithm, w.Iterations)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *ConvergenceWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("algorithm", w.Algorithm).
		Int("iterations", w.Iterations).
		Str("message", w.Message).
		Str("type", "ConvergenceWarning")
}

// NewConvergenceWarning は新しいConvergenceWarningを作成します。
func NewConvergenceWarning(algorithm string, iterations int, message string) *ConvergenceWarning {
	return &ConvergenceWarning{Algorithm: algorithm, Iterations: iterations, Message: message}
}

// DegenerateIntervalWarning は時間区間内の評価可能な被験者が単一クラスしか持たない場合の警告です。
// 分類器の代わりに定数分類器が使われたことを示します。
type DegenerateIntervalWarning struct {
	Interval     int // 区間のインデックス（0始まり）
	Class        int // 観測された唯一のクラス
	Observations int // 評価可能な被験者数
}

func (w *DegenerateIntervalWarning) Error() string {
	return fmt.Sprintf("time interval %d has a single observed class %d across %d subjects; using a constant classifier",
		w.Interval, w.Class, w.Observations)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *DegenerateIntervalWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Int("interval", w.Interval).
		Int("class", w.Class).
		Int("observations", w.Observations).
		Str("type", "DegenerateIntervalWarning")
}

// NewDegenerateIntervalWarning は新しいDegenerateIntervalWarningを作成します。
func NewDegenerateIntervalWarning(interval, class, observations int) *DegenerateIntervalWarning {
	return &DegenerateIntervalWarning{Interval: interval, Class: class, Observations: observations}
}

// ===========================================================================
//
//	構造化されたエラー型
//
// ===========================================================================

// NotFittedError はモデルが未学習の状態で予測メソッドを呼び出した場合のエラーです。
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("gosurv: %s: this model is not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError は新しいNotFittedErrorを作成し、スタックトレースを付与します。
func NewNotFittedError(modelName, method string) error {
	err := &NotFittedError{ModelName: modelName, Method: method}
	return errors.WithStack(err)
}

// NoObservationsInBucketError は時間区間に評価可能な被験者が一人もいない場合のエラーです。
// 学習全体を中断させる致命的なエラーです。
type NoObservationsInBucketError struct {
	Interval int
}

func (e *NoObservationsInBucketError) Error() string {
	return fmt.Sprintf("gosurv: no observations in time bucket %d", e.Interval)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *NoObservationsInBucketError) MarshalZerologObject(event *zerolog.Event) {
	event.Int("interval", e.Interval).
		Str("type", "NoObservationsInBucketError")
}

// NewNoObservationsInBucketError は新しいNoObservationsInBucketErrorを作成し、スタックトレースを付与します。
func NewNoObservationsInBucketError(interval int) error {
	return errors.WithStack(&NoObservationsInBucketError{Interval: interval})
}

// IntervalError は区間ごとの処理で発生した上流のエラーに区間インデックスを付与します。
// 元のエラーはUnwrapで取り出せます。
type IntervalError struct {
	Op       string
	Interval int
	Err      error
}

func (e *IntervalError) Error() string {
	return fmt.Sprintf("gosurv: %s: interval %d: %v", e.Op, e.Interval, e.Err)
}

func (e *IntervalError) Unwrap() error {
	return e.Err
}

// NewIntervalError は新しいIntervalErrorを作成します。
// errがnilの場合はnilを返します。
func NewIntervalError(op string, interval int, err error) error {
	if err == nil {
		return nil
	}
	return errors.WithStack(&IntervalError{Op: op, Interval: interval, Err: err})
}

// DimensionError は入力データの次元が期待値と異なる場合のエラーです。
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/features
}

func (e *DimensionError) Error() string {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	return fmt.Sprintf("gosurv: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, axisName, e.Expected, e.Got)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("axis_name", axisName).
		Str("type", "DimensionError")
}

// NewDimensionError は新しいDimensionErrorを作成し、スタックトレースを付与します。
func NewDimensionError(op string, expected, got, axis int) error {
	err := &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}
	return errors.WithStack(err)
}

// ValidationError は入力パラメータの検証に失敗した場合のエラーです。
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("gosurv: validation failed for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ValidationError")
}

// NewValidationError は新しいValidationErrorを作成し、スタックトレースを付与します。
func NewValidationError(param, reason string, value interface{}) error {
	err := &ValidationError{ParamName: param, Reason: reason, Value: value}
	return errors.WithStack(err)
}

// ValueError は引数の値が不適切または不正な場合に発生するエラーです。
// 例えば、区間分類器が[0, 1]の外側の確率を返した場合など。
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("gosurv: %s: %s", e.Op, e.Message)
}

// NewValueError は新しいValueErrorを作成し、スタックトレースを付与します。
func NewValueError(op, message string) error {
	err := &ValueError{Op: op, Message: message}
	return errors.WithStack(err)
}

// ModelError はモデルに関する一般的なエラーです。
type ModelError struct {
	Op   string
	Kind string
	Err  error
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gosurv: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("gosurv: %s: %s", e.Op, e.Kind)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// NewModelError は新しいModelErrorを作成し、スタックトレースを付与します。
func NewModelError(op, kind string, err error) error {
	modelErr := &ModelError{Op: op, Kind: kind, Err: err}
	return errors.WithStack(modelErr)
}

// NumericalInstabilityError は数値計算が不安定になった場合のエラーです。
// NaNやInfを検出します。
type NumericalInstabilityError struct {
	Operation string    // 発生した操作（例: "predict_hazard"）
	Values    []float64 // 問題のある値
	Iteration int       // 発生したイテレーション番号（区間処理では区間インデックス）
}

func (e *NumericalInstabilityError) Error() string {
	valStr := ""
	for i, v := range e.Values {
		if i > 0 {
			valStr += ", "
		}
		if i >= 5 {
			valStr += "..."
			break
		}
		valStr += fmt.Sprintf("%.6g", v)
	}
	return fmt.Sprintf("gosurv: numerical instability detected in %s at iteration %d. Values: [%s]",
		e.Operation, e.Iteration, valStr)
}

// NewNumericalInstabilityError は新しいNumericalInstabilityErrorを作成します。
func NewNumericalInstabilityError(operation string, values []float64, iteration int) error {
	err := &NumericalInstabilityError{
		Operation: operation,
		Values:    values,
		Iteration: iteration,
	}
	return errors.WithStack(err)
}

// ===========================================================================
//
//	cockroachdb/errors ラッパー関数
//
// ===========================================================================

// Is はエラーが特定のターゲットエラーかどうかを判定します。
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As はエラーが特定の型にキャスト可能かどうかを判定します。
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap は既存のエラーをメッセージ付きでラップします。
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf は既存のエラーをフォーマット文字列でラップします。
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New は新しいエラーを作成します。
func New(message string) error {
	return errors.New(message)
}

// Newf は新しいフォーマット済みエラーを作成します。
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack はエラーにスタックトレースを付与します。
func WithStack(err error) error {
	return errors.WithStack(err)
}

// ===========================================================================
//
//	共通エラー変数
//
// ===========================================================================

var (
	// ErrEmptyData は空のデータが渡された場合のエラーです。
	ErrEmptyData = New("empty data")
)
