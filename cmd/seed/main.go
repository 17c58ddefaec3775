package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"acumen/internal/model"
)

// seedObjective bundles one learning objective with its question bank.
type seedObjective struct {
	objective model.LearningObjective
	questions []model.QuestionBankItem
}

func main() {
	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		mongoURI = "mongodb://localhost:27017"
	}
	dbName := os.Getenv("MONGO_DB")
	if dbName == "" {
		dbName = "acumen"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(ctx)

	db := client.Database(dbName)
	objectiveColl := db.Collection("objectives")
	questionColl := db.Collection("questions")

	now := time.Now()
	seeds := buildSeeds(now)

	totalQuestions := 0
	for _, seed := range seeds {
		if _, err := objectiveColl.InsertOne(ctx, seed.objective); err != nil {
			log.Fatalf("Failed to insert objective %s: %v", seed.objective.ID, err)
		}
		docs := make([]interface{}, 0, len(seed.questions))
		for _, q := range seed.questions {
			docs = append(docs, q)
		}
		if _, err := questionColl.InsertMany(ctx, docs); err != nil {
			log.Fatalf("Failed to insert questions for %s: %v", seed.objective.ID, err)
		}
		totalQuestions += len(seed.questions)
	}

	fmt.Printf("Seeded %d objectives with %d questions\n", len(seeds), totalQuestions)
}

func buildSeeds(now time.Time) []seedObjective {
	return []seedObjective{
		{
			objective: model.LearningObjective{
				ID:          "obj_vitals",
				Title:       "Vital Signs Interpretation",
				Description: "Recognize normal ranges and common deviations in adult vital signs.",
				Complexity:  model.ComplexityBasic,
				CreatedAt:   now,
				UpdatedAt:   now,
			},
			questions: []model.QuestionBankItem{
				question("q_vitals_hr_norm", "obj_vitals", "heart rate", model.PromptMultipleChoice,
					"Which resting heart rate falls within the normal adult range?",
					[]string{"38 bpm", "72 bpm", "118 bpm", "150 bpm"}, 10, now),
				question("q_vitals_bp_read", "obj_vitals", "blood pressure", model.PromptMultipleChoice,
					"A reading of 128/82 mmHg is best classified as what?",
					[]string{"Hypotension", "Normal", "Elevated", "Stage 2 hypertension"}, 20, now),
				question("q_vitals_rr", "obj_vitals", "respiratory rate", model.PromptShortAnswer,
					"State the normal adult respiratory rate range and one cause of tachypnea.",
					nil, 30, now),
				question("q_vitals_fever", "obj_vitals", "temperature regulation", model.PromptShortAnswer,
					"Distinguish fever from hyperthermia in one sentence each.",
					nil, 38, now),
				question("q_vitals_shock", "obj_vitals", "perfusion", model.PromptCaseVignette,
					"A patient is pale with HR 130 and BP 84/50 after a fall. Describe your first assessment priorities.",
					nil, 40, now),
			},
		},
		{
			objective: model.LearningObjective{
				ID:          "obj_cardio",
				Title:       "Cardiac Output and Hemodynamics",
				Description: "Relate preload, afterload and contractility to cardiac output in common scenarios.",
				Complexity:  model.ComplexityIntermediate,
				CreatedAt:   now,
				UpdatedAt:   now,
			},
			questions: []model.QuestionBankItem{
				question("q_cardio_co_def", "obj_cardio", "cardiac output", model.PromptMultipleChoice,
					"Cardiac output equals which product?",
					[]string{"HR x SV", "HR x BP", "SV x SVR", "EF x HR"}, 42, now),
				question("q_cardio_preload", "obj_cardio", "preload", model.PromptShortAnswer,
					"Explain how venous return changes preload and the immediate effect on stroke volume.",
					nil, 50, now),
				question("q_cardio_afterload", "obj_cardio", "afterload", model.PromptShortAnswer,
					"Why does increased afterload reduce stroke volume in a failing ventricle?",
					nil, 58, now),
				question("q_cardio_frank", "obj_cardio", "frank-starling mechanism", model.PromptShortAnswer,
					"Describe the Frank-Starling relationship and its limit in an overstretched ventricle.",
					nil, 62, now),
				question("q_cardio_sepsis", "obj_cardio", "distributive shock", model.PromptCaseVignette,
					"A septic patient has warm extremities, BP 82/40, HR 122. Characterize the hemodynamic profile and the first-line intervention.",
					nil, 68, now),
				question("q_cardio_tamponade", "obj_cardio", "cardiac tamponade", model.PromptCaseVignette,
					"A post-operative patient develops muffled heart sounds, distended neck veins and falling BP. Walk through the physiology behind each finding.",
					nil, 70, now),
			},
		},
		{
			objective: model.LearningObjective{
				ID:          "obj_acidbase",
				Title:       "Complex Acid-Base Disorders",
				Description: "Work through mixed acid-base disturbances using compensation rules.",
				Complexity:  model.ComplexityAdvanced,
				CreatedAt:   now,
				UpdatedAt:   now,
			},
			questions: []model.QuestionBankItem{
				question("q_ab_anion_gap", "obj_acidbase", "anion gap", model.PromptShortAnswer,
					"Calculate the anion gap for Na 140, Cl 100, HCO3 12 and name two causes of this pattern.",
					nil, 72, now),
				question("q_ab_winters", "obj_acidbase", "respiratory compensation", model.PromptShortAnswer,
					"Apply Winter's formula to HCO3 of 12 and interpret a measured pCO2 of 40.",
					nil, 80, now),
				question("q_ab_mixed", "obj_acidbase", "mixed disorders", model.PromptCaseVignette,
					"A salicylate overdose presents with pH 7.46, pCO2 18, HCO3 14. Identify every primary process present.",
					nil, 88, now),
				question("q_ab_delta", "obj_acidbase", "delta-delta analysis", model.PromptCaseVignette,
					"Using delta-delta reasoning, show whether a hidden metabolic alkalosis coexists with an anion gap of 28 and HCO3 of 20.",
					nil, 95, now),
			},
		},
	}
}

func question(id, objectiveID, concept string, promptType model.PromptType, prompt string, opts []string, difficulty float64, now time.Time) model.QuestionBankItem {
	return model.QuestionBankItem{
		ID:              id,
		ObjectiveID:     objectiveID,
		ConceptName:     concept,
		PromptType:      promptType,
		Prompt:          prompt,
		Options:         opts,
		DifficultyLevel: difficulty,
		CreatedAt:       now,
	}
}
