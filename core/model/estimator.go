package model

import "gonum.org/v1/gonum/mat"

// Fitter はラベル付きデータで学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる。y は n×1 の列ベクトル
	Fit(X, y mat.Matrix) error
}

// ProbabilisticPredictor はクラス確率を予測できるモデルのインターフェース
type ProbabilisticPredictor interface {
	// PredictProba は n×n_classes の確率行列を返す。
	// 二値分類ではインデックス1が陽性クラス
	PredictProba(X mat.Matrix) (mat.Matrix, error)
}

// Classifier は区間ごとの分類器スロットを埋めるモデルのインターフェース
type Classifier interface {
	Fitter
	ProbabilisticPredictor
}

// Cloner は同じハイパーパラメータを持ち、学習状態を共有しない新しいインスタンスを作れるモデル
type Cloner interface {
	Clone() Classifier
}

// CloneableClassifier は基底分類器として設定できるモデル
type CloneableClassifier interface {
	Classifier
	Cloner
}

// WeightExporter は重みをエクスポート可能なモデルのインターフェース
type WeightExporter interface {
	// ExportWeights はモデルの重みをエクスポート
	ExportWeights() (*ModelWeights, error)

	// ImportWeights はモデルの重みをインポート
	ImportWeights(weights *ModelWeights) error
}
