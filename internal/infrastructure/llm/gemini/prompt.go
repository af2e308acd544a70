package gemini

import (
	"fmt"
	"strings"
)

const outputFormatRules = `## Format de sortie JSON
{
    "patientFirstName": "Jean",
    "patientLastName": "Dupont",
    "patientGender": "M",
    "patientBirthdate": "15/03/1985",
    "examinationDate": "20/12/2024",
    "examinationType": "Analyses Sanguines"
}

## Règles de gestion des valeurs manquantes
- Informations non trouvées → ""
- Dates non trouvées → ""
- Genre non identifié → ""

## Priorités de reconnaissance
1. Privilégier le texte formaté et clairement identifiable
2. Rechercher les informations dans l'en-tête du document
3. Analyser le corps du document pour les informations manquantes
4. Vérifier la cohérence entre le type de document et la spécialité médicale

## Validation des données
1. Vérifier la cohérence des dates (format et validité)
2. Contrôler que le genre est bien M ou F
3. S'assurer que la spécialité correspond aux catégories définies
`

const defaultExtractionPrompt = `Réfléchis avant de répondre.

## Objectif
Extraire les informations structurées d'un document médical scanné et les retourner au format JSON standardisé.

## Informations à extraire
1. Informations patient :
    - patientFirstName : Prénom du patient
    - patientLastName : Nom de famille du patient
    - patientGender : Sexe du patient (M ou F uniquement)
    - patientBirthdate : Date de naissance (format DD/MM/YYYY)
    - examinationDate : Date de l'examen (format DD/MM/YYYY)
    - examinationType : Type d'examen

## Règles de reconnaissance et extraction

### Types de documents et spécialités
Identifier la catégorie principale du document parmi :
- ORDONNANCES
- CHIRURGIE
- CONSULTATION
- HOSPITALISATION
- ORDONNANCE - BILAN

### Règles spécifiques pour examinationType
1. Si "Résultats de biologie" → "Analyses Sanguines"
2. Pour les autres cas → Conserver l'intitulé original

### Indices de localisation
- examinationType : Généralement centré en haut du document
- Dates : Chercher les mentions "Date de naissance", "Date d'examen", "Né(e) le"
- Genre : Identifier "Homme"/"Femme" ou H/F
- Spécialité : Analyser l'en-tête et le contenu pour identifier le service médical

` + outputFormatRules

// buildExtractionPrompt appends the output contract to a custom prompt so
// category prompts only need to describe what to look for.
func buildExtractionPrompt(custom string) string {
	custom = strings.TrimSpace(custom)
	if custom == "" {
		return defaultExtractionPrompt
	}
	return custom + "\n\n" + outputFormatRules
}

func buildDetectionPrompt(categories []string) string {
	return fmt.Sprintf(`Examine la première page de ce document médical et détermine à quelle catégorie il appartient parmi la liste suivante: %s.

Si le document ne correspond à aucune des catégories listées, indique "no_category: true".

Réponds uniquement avec un objet JSON au format:
{
  "category": "nom_de_la_catégorie",
  "no_category": false
}

Si aucune catégorie ne correspond:
{
  "category": "",
  "no_category": true
}
`, strings.Join(categories, ", "))
}
